// Package duckdb provides a DuckDB warehouse adapter for dfbridge.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/marcboeker/go-duckdb"
)

var dialect = &core.DialectConfig{
	Name:          "duckdb",
	Identifiers:   core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	TypeNames: map[core.ColumnType]string{
		core.ColumnInt64:     "BIGINT",
		core.ColumnFloat64:   "DOUBLE",
		core.ColumnString:    "VARCHAR",
		core.ColumnBool:      "BOOLEAN",
		core.ColumnTimestamp: "TIMESTAMP",
	},
}

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	native adapter.NativePaths
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Dialect: dialect},
	}
	a.native = adapter.NativePaths{
		Backend: "duckdb",
		Loaders: map[core.FileLocation]adapter.NativeLoader{
			core.LocationLocal: a.loadNative,
			core.LocationS3:    a.loadNative,
			core.LocationGS:    a.loadNative,
			core.LocationHTTP:  a.loadNative,
			core.LocationHTTPS: a.loadNative,
		},
		Formats: map[core.FileType]string{
			core.TypeCSV:     "read_csv_auto",
			core.TypeJSON:    "read_json_auto",
			core.TypeNDJSON:  "read_json_auto",
			core.TypeParquet: "read_parquet",
		},
		Globs:  true,
		Logger: logger,
	}
	return a
}

// SQLType returns the backend identifier.
func (a *Adapter) SQLType() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

// applyParams installs extensions, applies settings and creates secrets.
func (a *Adapter) applyParams(ctx context.Context, params *Params) error {
	for _, ext := range params.Extensions {
		a.Logger.Debug("loading extension", slog.String("extension", ext))
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, value := range params.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", key, quoteLiteral(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	for _, secret := range params.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(secret)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", secret.Type, err)
		}
	}
	return nil
}

// SchemaExists checks information_schema.schemata.
func (a *Adapter) SchemaExists(ctx context.Context, schema string) (bool, error) {
	return a.SchemaExistsCommon(ctx, schema)
}

// MergeInitializationQuery creates the unique index used by the exception strategy.
func (a *Adapter) MergeInitializationQuery(params core.MergeParams) string {
	return a.MergeInitializationQueryCommon(params, a.QualifiedName(params.Target))
}

// LoadDataframe creates the schema and table, then appends rows through the DuckDB appender.
func (a *Adapter) LoadDataframe(ctx context.Context, df *core.Dataframe, table core.Table, opts core.LoadOptions) error {
	table = a.ResolveTable(table)
	return a.LoadDataframeCommon(ctx, df, adapter.LoadPlan{
		Qualified: a.QualifiedName(table),
		Schema:    table.Metadata.Schema,
		Write:     appendChunk(table.Metadata.Schema, table.Name),
	}, opts)
}

// appendChunk returns a writer that streams rows through duckdb.Appender.
func appendChunk(schema, name string) adapter.ChunkWriter {
	return func(_ context.Context, conn *sql.Conn, _ string, chunk *core.Dataframe) error {
		return conn.Raw(func(driverConn any) error {
			dc, ok := driverConn.(driver.Conn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", driverConn)
			}
			appender, err := duckdb.NewAppenderFromConn(dc, schema, name)
			if err != nil {
				return fmt.Errorf("failed to create appender: %w", err)
			}
			for i := 0; i < chunk.Len(); i++ {
				row := chunk.Row(i)
				values := make([]driver.Value, len(row))
				for j, v := range row {
					values[j] = v
				}
				if err := appender.AppendRow(values...); err != nil {
					_ = appender.Close()
					return fmt.Errorf("failed to append row %d: %w", i, err)
				}
			}
			return appender.Close()
		})
	}
}

// ExportTable reads the table into a dataframe.
func (a *Adapter) ExportTable(ctx context.Context, table core.Table) (*core.Dataframe, error) {
	return a.ExportTableCommon(ctx, a.QualifiedName(table))
}

// MergeTable merges source into target with UPDATE ... FROM and anti-join INSERT.
func (a *Adapter) MergeTable(ctx context.Context, params core.MergeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	statements := a.MergeStatements(params, a.QualifiedName(params.Source), a.QualifiedName(params.Target))
	return a.MergeCommon(ctx, a.MergeInitializationQuery(params), statements)
}

// CheckNativePath reports whether DuckDB can read the file directly.
func (a *Adapter) CheckNativePath(file core.File, _ core.Table) bool {
	return a.native.Check(file)
}

// LoadFileNatively loads the file with DuckDB's table functions.
func (a *Adapter) LoadFileNatively(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	return a.native.Load(ctx, file, table, ifExists, opts)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
