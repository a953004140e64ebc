// Package sqlite provides a SQLite warehouse adapter for dfbridge.
//
// SQLite has no schemas: tables are addressed by bare name and the attached
// database names ("main", "temp", ...) stand in for schemas in SchemaExists.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

var dialect = &core.DialectConfig{
	Name:        "sqlite",
	Identifiers: core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
	Placeholder: core.PlaceholderQuestion,
	TypeNames: map[core.ColumnType]string{
		core.ColumnInt64:     "INTEGER",
		core.ColumnFloat64:   "REAL",
		core.ColumnString:    "TEXT",
		core.ColumnBool:      "BOOLEAN",
		core.ColumnTimestamp: "TIMESTAMP",
	},
}

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Dialect: dialect},
	}
}

// SQLType returns the backend identifier.
func (a *Adapter) SQLType() string {
	return "sqlite"
}

// Connect opens the database file.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// DefaultMetadata returns no schema; SQLite tables live in the main database.
func (a *Adapter) DefaultMetadata() (core.Metadata, error) {
	return core.Metadata{}, nil
}

// QualifiedName returns the bare quoted table name.
func (a *Adapter) QualifiedName(table core.Table) string {
	return a.Quote(table.Name)
}

// SchemaExists reports whether an attached database with that name exists.
func (a *Adapter) SchemaExists(ctx context.Context, schema string) (bool, error) {
	var count int64
	err := a.WithConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM pragma_database_list WHERE lower(name) = lower(?)", schema)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("failed to list databases: %w", err)
		}
		return nil
	})
	return count > 0, err
}

// MergeInitializationQuery creates the unique index used by the exception strategy.
func (a *Adapter) MergeInitializationQuery(params core.MergeParams) string {
	return a.MergeInitializationQueryCommon(params, a.QualifiedName(params.Target))
}

// LoadDataframe writes the dataframe with multi-row INSERT statements.
func (a *Adapter) LoadDataframe(ctx context.Context, df *core.Dataframe, table core.Table, opts core.LoadOptions) error {
	return a.LoadDataframeCommon(ctx, df, adapter.LoadPlan{Qualified: a.QualifiedName(table)}, opts)
}

// ExportTable reads the table into a dataframe.
func (a *Adapter) ExportTable(ctx context.Context, table core.Table) (*core.Dataframe, error) {
	return a.ExportTableCommon(ctx, a.QualifiedName(table))
}

// MergeTable merges source into target.
func (a *Adapter) MergeTable(ctx context.Context, params core.MergeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	statements := a.MergeStatements(params, a.QualifiedName(params.Source), a.QualifiedName(params.Target))
	return a.MergeCommon(ctx, a.MergeInitializationQuery(params), statements)
}

// CheckNativePath is always false: SQLite has no bulk file ingestion.
func (a *Adapter) CheckNativePath(core.File, core.Table) bool {
	return false
}

// LoadFileNatively always fails with a configuration error.
func (a *Adapter) LoadFileNatively(_ context.Context, file core.File, _ core.Table, _ core.LoadExistStrategy, _ core.NativeLoadOptions) error {
	return &core.NativePathError{Location: file.Location, Backend: a.SQLType(), FileType: file.Type}
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
