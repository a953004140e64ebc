package core

import (
	"context"
)

// Database defines the capabilities every warehouse backend must provide.
// Callers address tables and files through it without knowing which backend is in play.
type Database interface {
	// SQLType returns the backend identifier (e.g., "bigquery", "postgres").
	SQLType() string

	// DefaultMetadata returns the schema and database applied to tables that do not name them.
	DefaultMetadata() (Metadata, error)

	// QualifiedName returns the fully qualified identifier used in every generated statement.
	QualifiedName(table Table) string

	// SchemaExists reports whether the schema (dataset) exists. Not-found is (false, nil).
	SchemaExists(ctx context.Context, schema string) (bool, error)

	// MergeInitializationQuery returns DDL to run before a merge, or NoOpStatement.
	MergeInitializationQuery(params MergeParams) string

	// LoadDataframe writes the dataframe into the table in chunks.
	LoadDataframe(ctx context.Context, df *Dataframe, table Table, opts LoadOptions) error

	// ExportTable reads the whole table into a dataframe.
	ExportTable(ctx context.Context, table Table) (*Dataframe, error)

	// MergeTable merges the source table into the target table.
	MergeTable(ctx context.Context, params MergeParams) error

	// CheckNativePath reports whether the file can be loaded by the backend itself.
	CheckNativePath(file File, table Table) bool

	// LoadFileNatively loads the file through the backend's native path.
	LoadFileNatively(ctx context.Context, file File, table Table, ifExists LoadExistStrategy, opts NativeLoadOptions) error

	// RunSQL executes a statement that returns no rows.
	RunSQL(ctx context.Context, statement string) error

	// Close releases the backend's resources.
	Close() error
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	// ConnID is the connection identifier the configuration was resolved from.
	ConnID   string
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string

	// DefaultSchema is the process-wide fallback schema used when Schema is empty.
	DefaultSchema string

	Options map[string]string
	Params  map[string]any
}

// ResolvedSchema returns the connection schema, then the process default, then DefaultSchema.
func (c AdapterConfig) ResolvedSchema() string {
	switch {
	case c.Schema != "":
		return c.Schema
	case c.DefaultSchema != "":
		return c.DefaultSchema
	default:
		return DefaultSchema
	}
}
