package bigquery

import (
	"context"
	"io"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Client is the set of BigQuery operations the adapter depends on.
type Client interface {
	// Project returns the project id jobs run in.
	Project() string

	// DatasetExists reports whether the dataset exists; not-found is (false, nil).
	// An empty project means the client's project.
	DatasetExists(ctx context.Context, project, dataset string) (bool, error)
	CreateDataset(ctx context.Context, project, dataset string) error

	// Exec runs a statement and waits for it to finish.
	Exec(ctx context.Context, statement string) error
	Query(ctx context.Context, statement string) (*core.Dataframe, error)

	// Load submits a load job and returns its id.
	Load(ctx context.Context, job LoadJob) (string, error)

	Close() error
}

// LoadJob is a BigQuery load job configuration.
type LoadJob struct {
	// Exactly one of URI and Reader is set.
	URI    string
	Reader io.Reader

	Project string
	Dataset string
	Table   string

	SourceFormat      string
	Schema            []SchemaField
	WriteDisposition  string
	CreateDisposition string
	AutoDetect        bool

	SkipLeadingRows     int64
	FieldDelimiter      string
	AllowJaggedRows     bool
	AllowQuotedNewlines bool
	IgnoreUnknownValues bool
	MaxBadRecords       int64

	Labels map[string]string

	// Wait blocks until the job completes and surfaces its error.
	Wait bool
}

// SchemaField is one column of an explicit load schema.
type SchemaField struct {
	Name string
	Type core.ColumnType
}
