package bigquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// gcpClient implements Client over cloud.google.com/go/bigquery.
type gcpClient struct {
	client *bigquery.Client
}

// NewClient creates a BigQuery client. An empty project is detected from the credentials.
func NewClient(ctx context.Context, project, location string, opts ...option.ClientOption) (Client, error) {
	if project == "" {
		project = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	client.Location = location
	return &gcpClient{client: client}, nil
}

func (c *gcpClient) Project() string {
	return c.client.Project()
}

func (c *gcpClient) dataset(project, dataset string) *bigquery.Dataset {
	if project == "" {
		return c.client.Dataset(dataset)
	}
	return c.client.DatasetInProject(project, dataset)
}

func (c *gcpClient) DatasetExists(ctx context.Context, project, dataset string) (bool, error) {
	if _, err := c.dataset(project, dataset).Metadata(ctx); err != nil {
		if isHTTPStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get dataset metadata: %w", err)
	}
	return true, nil
}

func (c *gcpClient) CreateDataset(ctx context.Context, project, dataset string) error {
	err := c.dataset(project, dataset).Create(ctx, &bigquery.DatasetMetadata{Location: c.client.Location})
	if err != nil && !isHTTPStatus(err, http.StatusConflict) {
		return fmt.Errorf("failed to create dataset %s: %w", dataset, err)
	}
	return nil
}

func (c *gcpClient) Exec(ctx context.Context, statement string) error {
	job, err := c.client.Query(statement).Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run query: %w", err)
	}
	return waitJob(ctx, job)
}

func (c *gcpClient) Query(ctx context.Context, statement string) (*core.Dataframe, error) {
	it, err := c.client.Query(statement).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	var rows [][]bigquery.Value
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, row)
	}

	cols := make([]core.Column, len(it.Schema))
	for i, field := range it.Schema {
		values := make([]bigquery.Value, len(rows))
		for r, row := range rows {
			values[r] = row[i]
		}
		col, err := columnFromField(field, values)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return core.NewDataframe(cols...)
}

// columnFromField builds a column typed by the result schema rather than by its values.
// NUMERIC values arrive as *big.Rat and DATE/DATETIME as civil types; nested and
// repeated fields are kept as JSON text.
func columnFromField(field *bigquery.FieldSchema, values []bigquery.Value) (core.Column, error) {
	typ := columnTypeFromField(field.Type)
	if field.Repeated || field.Type == bigquery.RecordFieldType {
		typ = core.ColumnString
	}
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case *big.Rat:
			f, _ := x.Float64()
			out[i] = f
		case civil.Date:
			out[i] = x.In(time.UTC)
		case civil.DateTime:
			out[i] = x.In(time.UTC)
		case []bigquery.Value:
			b, err := json.Marshal(x)
			if err != nil {
				return core.Column{}, fmt.Errorf("failed to encode %s: %w", field.Name, err)
			}
			out[i] = string(b)
		default:
			out[i] = x
		}
	}
	col, err := core.NewTypedColumn(field.Name, typ, out)
	if err != nil {
		return core.Column{}, fmt.Errorf("failed to read column %s: %w", field.Name, err)
	}
	return col, nil
}

func (c *gcpClient) Load(ctx context.Context, job LoadJob) (string, error) {
	fc := bigquery.FileConfig{
		SourceFormat:        bigquery.DataFormat(job.SourceFormat),
		AutoDetect:          job.AutoDetect,
		MaxBadRecords:       job.MaxBadRecords,
		IgnoreUnknownValues: job.IgnoreUnknownValues,
		Schema:              toSchema(job.Schema),
		CSVOptions: bigquery.CSVOptions{
			FieldDelimiter:      job.FieldDelimiter,
			AllowJaggedRows:     job.AllowJaggedRows,
			AllowQuotedNewlines: job.AllowQuotedNewlines,
			SkipLeadingRows:     job.SkipLeadingRows,
		},
	}

	var src bigquery.LoadSource
	if job.URI != "" {
		ref := bigquery.NewGCSReference(job.URI)
		ref.FileConfig = fc
		src = ref
	} else {
		rs := bigquery.NewReaderSource(job.Reader)
		rs.FileConfig = fc
		src = rs
	}

	loader := c.client.DatasetInProject(job.Project, job.Dataset).Table(job.Table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.TableWriteDisposition(job.WriteDisposition)
	loader.CreateDisposition = bigquery.TableCreateDisposition(job.CreateDisposition)
	loader.Labels = job.Labels

	j, err := loader.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start load job: %w", err)
	}
	if job.Wait {
		if err := waitJob(ctx, j); err != nil {
			return j.ID(), err
		}
	}
	return j.ID(), nil
}

func (c *gcpClient) Close() error {
	return c.client.Close()
}

func waitJob(ctx context.Context, job *bigquery.Job) error {
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("error waiting for job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job %s completed with error: %w", job.ID(), err)
	}
	return nil
}

// isHTTPStatus reports whether err is a googleapi error with the given code.
func isHTTPStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

func toSchema(fields []SchemaField) bigquery.Schema {
	if len(fields) == 0 {
		return nil
	}
	schema := make(bigquery.Schema, len(fields))
	for i, f := range fields {
		schema[i] = &bigquery.FieldSchema{Name: f.Name, Type: fieldType(f.Type)}
	}
	return schema
}

func fieldType(t core.ColumnType) bigquery.FieldType {
	switch t {
	case core.ColumnInt64:
		return bigquery.IntegerFieldType
	case core.ColumnFloat64:
		return bigquery.FloatFieldType
	case core.ColumnBool:
		return bigquery.BooleanFieldType
	case core.ColumnTimestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}

func columnTypeFromField(t bigquery.FieldType) core.ColumnType {
	switch t {
	case bigquery.IntegerFieldType:
		return core.ColumnInt64
	case bigquery.FloatFieldType, bigquery.NumericFieldType, bigquery.BigNumericFieldType:
		return core.ColumnFloat64
	case bigquery.BooleanFieldType:
		return core.ColumnBool
	case bigquery.TimestampFieldType, bigquery.DateTimeFieldType, bigquery.DateFieldType:
		return core.ColumnTimestamp
	default:
		return core.ColumnString
	}
}
