// Package bigquery provides the BigQuery warehouse adapter for dfbridge.
//
// Datasets play the role of schemas. Files in Google Cloud Storage are
// loaded natively with load jobs; dataframes are streamed as
// newline-delimited JSON load jobs with an explicit schema.
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"google.golang.org/api/option"
)

var dialect = &core.DialectConfig{
	Name:                          "bigquery",
	Identifiers:                   core.IdentifierConfig{Quote: "`", QuoteEnd: "`", Escape: "\\`"},
	IllegalColumnChars:            []string{"."},
	IllegalColumnCharsReplacement: []string{"_"},
	TypeNames: map[core.ColumnType]string{
		core.ColumnInt64:     "INT64",
		core.ColumnFloat64:   "FLOAT64",
		core.ColumnString:    "STRING",
		core.ColumnBool:      "BOOL",
		core.ColumnTimestamp: "TIMESTAMP",
	},
}

// Params holds BigQuery-specific connection configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Project overrides the connection database as the BigQuery project id.
	Project string `mapstructure:"project"`

	// Location is the dataset and job location (e.g., "US", "europe-west1").
	Location string `mapstructure:"location"`

	// CredentialsFile is a service account key file; empty uses application default credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ClientFactory creates the client used by Connect.
type ClientFactory func(ctx context.Context, project, location string, opts ...option.ClientOption) (Client, error)

// Adapter implements adapter.Adapter for BigQuery.
type Adapter struct {
	client    Client
	cfg       core.AdapterConfig
	logger    *slog.Logger
	native    adapter.NativePaths
	newClient ClientFactory
}

// New creates a new BigQuery adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Adapter{logger: logger, newClient: NewClient}
	a.native = adapter.NativePaths{
		Backend: "bigquery",
		Loaders: map[core.FileLocation]adapter.NativeLoader{
			core.LocationGS: a.gsToBigQuery,
		},
		Formats: map[core.FileType]string{
			core.TypeCSV:     string(bigquery.CSV),
			core.TypeNDJSON:  string(bigquery.JSON),
			core.TypeParquet: string(bigquery.Parquet),
		},
		Globs:  true,
		Logger: logger,
	}
	return a
}

// NewWithClient creates an adapter around an existing client.
func NewWithClient(client Client, cfg core.AdapterConfig, logger *slog.Logger) *Adapter {
	a := New(logger)
	a.client = client
	a.cfg = cfg
	return a
}

// SQLType returns the backend identifier.
func (a *Adapter) SQLType() string {
	return "bigquery"
}

// Connect creates the BigQuery client from the connection config.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := mapstructure.Decode(cfg.Params, &params); err != nil {
		return fmt.Errorf("failed to decode bigquery params: %w", err)
	}
	project := params.Project
	if project == "" {
		project = cfg.Database
	}

	var opts []option.ClientOption
	if params.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, params.CredentialsFile))
	}

	a.logger.Debug("connecting to bigquery", slog.String("project", project), slog.String("location", params.Location))

	client, err := a.newClient(ctx, project, params.Location, opts...)
	if err != nil {
		return err
	}
	a.client = client
	a.cfg = cfg
	return nil
}

// Close releases the client.
func (a *Adapter) Close() error {
	if a.client == nil {
		return nil
	}
	a.logger.Debug("closing bigquery client")
	return a.client.Close()
}

// DefaultMetadata returns the default dataset and the client project.
func (a *Adapter) DefaultMetadata() (core.Metadata, error) {
	md := core.Metadata{Schema: a.cfg.ResolvedSchema()}
	if a.client != nil {
		md.Database = a.client.Project()
	}
	return md, nil
}

// resolveDataset fills the dataset (schema) from the defaults. The project is left as given.
func (a *Adapter) resolveDataset(table core.Table) core.Table {
	if table.Metadata.Schema == "" {
		table.Metadata.Schema = a.cfg.ResolvedSchema()
	}
	return table
}

// QualifiedName returns `dataset.table`, or `project.dataset.table` when the table names a project.
func (a *Adapter) QualifiedName(table core.Table) string {
	table = a.resolveDataset(table)
	parts := []string{table.Metadata.Schema, table.Name}
	if table.Metadata.Database != "" {
		parts = append([]string{table.Metadata.Database}, parts...)
	}
	return dialect.QuoteIdentifier(strings.Join(parts, "."))
}

// SchemaExists reports whether the dataset exists.
func (a *Adapter) SchemaExists(ctx context.Context, schema string) (bool, error) {
	if a.client == nil {
		return false, adapter.ErrNotConnected
	}
	return a.client.DatasetExists(ctx, "", schema)
}

// MergeInitializationQuery is a no-op: MERGE needs no constraint.
func (a *Adapter) MergeInitializationQuery(core.MergeParams) string {
	return core.NoOpStatement
}

// RunSQL executes a statement and waits for it to complete.
func (a *Adapter) RunSQL(ctx context.Context, statement string) error {
	if a.client == nil {
		return adapter.ErrNotConnected
	}
	return a.client.Exec(ctx, statement)
}

// ensureDataset creates the dataset in project when it does not exist.
func (a *Adapter) ensureDataset(ctx context.Context, project, dataset string) error {
	exists, err := a.client.DatasetExists(ctx, project, dataset)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	a.logger.Debug("creating dataset", slog.String("project", project), slog.String("dataset", dataset))
	return a.client.CreateDataset(ctx, project, dataset)
}

// LoadDataframe writes the dataframe with one NDJSON load job per chunk.
// The first chunk truncates or appends per opts.IfExists; later chunks append.
func (a *Adapter) LoadDataframe(ctx context.Context, df *core.Dataframe, table core.Table, opts core.LoadOptions) error {
	if a.client == nil {
		return adapter.ErrNotConnected
	}
	opts = opts.WithDefaults()
	table = a.resolveDataset(table)
	df = df.Rename(dialect.SanitizeColumnName)
	if df.Width() == 0 {
		return fmt.Errorf("cannot load a dataframe without columns into %s", a.QualifiedName(table))
	}
	project := table.Metadata.Database
	if project == "" {
		project = a.client.Project()
	}
	if err := a.ensureDataset(ctx, project, table.Metadata.Schema); err != nil {
		return err
	}

	schema := make([]SchemaField, df.Width())
	for i, c := range df.Columns() {
		schema[i] = SchemaField{Name: c.Name, Type: c.Type()}
	}

	disposition := writeDisposition(opts.IfExists)
	for i, chunk := range df.Chunks(opts.ChunkSize) {
		body, err := encodeNDJSON(chunk)
		if err != nil {
			return fmt.Errorf("failed to encode chunk %d: %w", i, err)
		}
		jobID, err := a.client.Load(ctx, LoadJob{
			Reader:            body,
			Project:           project,
			Dataset:           table.Metadata.Schema,
			Table:             table.Name,
			SourceFormat:      string(bigquery.JSON),
			Schema:            schema,
			WriteDisposition:  disposition,
			CreateDisposition: string(bigquery.CreateIfNeeded),
			Wait:              true,
		})
		if err != nil {
			return fmt.Errorf("failed to load chunk %d into %s: %w", i, a.QualifiedName(table), err)
		}
		a.logger.Debug("loaded chunk",
			slog.String("job_id", jobID),
			slog.Int("chunk", i),
			slog.Int("rows", chunk.Len()))
		disposition = string(bigquery.WriteAppend)
	}
	return nil
}

// encodeNDJSON renders the rows as newline-delimited JSON objects.
func encodeNDJSON(df *core.Dataframe) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	columns := df.Columns()
	for i := 0; i < df.Len(); i++ {
		rec := make(map[string]any, len(columns))
		for _, c := range columns {
			v := c.Value(i)
			if ts, ok := v.(time.Time); ok {
				v = ts.UTC().Format(time.RFC3339Nano)
			}
			rec[c.Name] = v
		}
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return &buf, nil
}

// ExportTable reads the table through the query API.
func (a *Adapter) ExportTable(ctx context.Context, table core.Table) (*core.Dataframe, error) {
	if a.client == nil {
		return nil, adapter.ErrNotConnected
	}
	qualified := a.QualifiedName(table)
	a.logger.Debug("exporting table", slog.String("table", qualified))
	df, err := a.client.Query(ctx, "SELECT * FROM "+qualified)
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", qualified, err)
	}
	return df, nil
}

// MergeTable runs a single MERGE statement.
func (a *Adapter) MergeTable(ctx context.Context, params core.MergeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	stmt := a.MergeStatement(params)
	a.logger.Debug("running merge", slog.String("sql", stmt))
	return a.RunSQL(ctx, stmt)
}

// MergeStatement builds the MERGE statement for the strategy.
func (a *Adapter) MergeStatement(params core.MergeParams) string {
	q := dialect.QuoteIdentifier

	keys := make([]string, len(params.ConflictColumns))
	for i, k := range params.ConflictColumns {
		keys[i] = fmt.Sprintf("T.%s = S.%s", q(k), q(params.SourceFor(k)))
	}
	tgtCols := make([]string, len(params.Columns))
	srcCols := make([]string, len(params.Columns))
	for i, c := range params.Columns {
		tgtCols[i] = q(c.Target)
		srcCols[i] = "S." + q(c.Source)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE %s T USING %s S ON %s WHEN NOT MATCHED BY TARGET THEN INSERT (%s) VALUES (%s)",
		a.QualifiedName(params.Target), a.QualifiedName(params.Source), strings.Join(keys, " AND "),
		strings.Join(tgtCols, ", "), strings.Join(srcCols, ", "))

	switch params.IfConflicts {
	case core.ConflictUpdate:
		sets := make([]string, len(params.Columns))
		for i, c := range params.Columns {
			sets[i] = fmt.Sprintf("T.%s = S.%s", q(c.Target), q(c.Source))
		}
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(sets, ", "))
	case core.ConflictException:
		first := params.ConflictColumns[0]
		fmt.Fprintf(&sb, " WHEN MATCHED THEN UPDATE SET T.%s = ERROR('merge conflict on %s')",
			q(first), strings.Join(params.ConflictColumns, ", "))
	}
	return sb.String()
}

// CheckNativePath reports whether the file can be loaded with a load job.
func (a *Adapter) CheckNativePath(file core.File, _ core.Table) bool {
	return a.native.Check(file)
}

// LoadFileNatively loads the file with a BigQuery load job.
func (a *Adapter) LoadFileNatively(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	return a.native.Load(ctx, file, table, ifExists, opts)
}

// gsToBigQuery submits a load job reading the file straight from Cloud Storage.
func (a *Adapter) gsToBigQuery(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	if a.client == nil {
		return adapter.ErrNotConnected
	}
	table = a.resolveDataset(table)
	project := table.Metadata.Database
	if project == "" {
		project = a.client.Project()
	}
	if project == "" {
		connID := a.cfg.ConnID
		if connID == "" {
			connID = table.ConnID
		}
		return &core.MissingProjectError{ConnID: connID}
	}

	format, err := a.native.Format(file.Type)
	if err != nil {
		return err
	}
	if err := a.ensureDataset(ctx, project, table.Metadata.Schema); err != nil {
		return err
	}

	job := LoadJob{
		URI:               file.Path,
		Project:           project,
		Dataset:           table.Metadata.Schema,
		Table:             table.Name,
		SourceFormat:      format,
		WriteDisposition:  writeDisposition(ifExists),
		CreateDisposition: string(bigquery.CreateIfNeeded),
		AutoDetect:        true,
		Labels:            map[string]string{"target_table": strings.ToLower(table.Name)},
	}
	applyNativeOptions(&job, opts)

	jobID, err := a.client.Load(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to load %s into %s: %w", file.Path, a.QualifiedName(table), err)
	}
	a.logger.Debug("submitted load job",
		slog.String("job_id", jobID),
		slog.String("uri", file.Path),
		slog.Bool("wait", job.Wait))
	return nil
}

// applyNativeOptions overrides the job defaults with the caller's options.
func applyNativeOptions(job *LoadJob, opts core.NativeLoadOptions) {
	if opts.AutoDetect != nil {
		job.AutoDetect = *opts.AutoDetect
	}
	if opts.SkipLeadingRows != nil {
		job.SkipLeadingRows = *opts.SkipLeadingRows
	}
	if opts.FieldDelimiter != nil {
		job.FieldDelimiter = *opts.FieldDelimiter
	}
	if opts.AllowJaggedRows != nil {
		job.AllowJaggedRows = *opts.AllowJaggedRows
	}
	if opts.AllowQuotedNewlines != nil {
		job.AllowQuotedNewlines = *opts.AllowQuotedNewlines
	}
	if opts.IgnoreUnknownValues != nil {
		job.IgnoreUnknownValues = *opts.IgnoreUnknownValues
	}
	if opts.MaxBadRecords != nil {
		job.MaxBadRecords = *opts.MaxBadRecords
	}
	for k, v := range opts.Labels {
		job.Labels[k] = v
	}
	job.Wait = opts.Wait
}

func writeDisposition(ifExists core.LoadExistStrategy) string {
	if ifExists == core.LoadAppend {
		return string(bigquery.WriteAppend)
	}
	return string(bigquery.WriteTruncate)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
