// Package postgres provides a PostgreSQL warehouse adapter for dfbridge.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
)

var dialect = &core.DialectConfig{
	Name:          "postgres",
	Identifiers:   core.IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	TypeNames: map[core.ColumnType]string{
		core.ColumnInt64:     "BIGINT",
		core.ColumnFloat64:   "DOUBLE PRECISION",
		core.ColumnString:    "TEXT",
		core.ColumnBool:      "BOOLEAN",
		core.ColumnTimestamp: "TIMESTAMP",
	},
}

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	native adapter.NativePaths
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Dialect: dialect},
	}
	a.native = adapter.NativePaths{
		Backend: "postgres",
		Loaders: map[core.FileLocation]adapter.NativeLoader{
			core.LocationLocal: a.loadLocalCSV,
		},
		Formats: map[core.FileType]string{
			core.TypeCSV: "csv",
		},
		Logger: logger,
	}
	return a
}

// SQLType returns the backend identifier.
func (a *Adapter) SQLType() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
// Options other than sslmode are appended as extra key=value pairs in sorted order.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, cfg.Options[k])
	}

	return dsn
}

// QualifiedName returns "schema"."table" with the schema lower-cased.
func (a *Adapter) QualifiedName(table core.Table) string {
	table = a.ResolveTable(table)
	return a.Quote(strings.ToLower(table.Metadata.Schema)) + "." + a.Quote(table.Name)
}

// SchemaExists checks information_schema.schemata, case-insensitively.
func (a *Adapter) SchemaExists(ctx context.Context, schema string) (bool, error) {
	return a.SchemaExistsCommon(ctx, schema)
}

// MergeInitializationQuery creates the unique index ON CONFLICT needs.
func (a *Adapter) MergeInitializationQuery(params core.MergeParams) string {
	return a.UniqueIndexQuery(params, a.QualifiedName(params.Target))
}

// MergeStatement builds INSERT ... SELECT ... ON CONFLICT for the strategy.
// The exception strategy has no conflict clause so violations raise.
func (a *Adapter) MergeStatement(params core.MergeParams) string {
	srcCols := make([]string, len(params.Columns))
	for i, c := range params.Columns {
		srcCols[i] = "src." + a.Quote(c.Source)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s AS src",
		a.QualifiedName(params.Target), a.QuoteAll(params.TargetColumns()),
		strings.Join(srcCols, ", "), a.QualifiedName(params.Source))

	switch params.IfConflicts {
	case core.ConflictIgnore:
		stmt += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", a.QuoteAll(params.ConflictColumns))
	case core.ConflictUpdate:
		sets := make([]string, len(params.Columns))
		for i, c := range params.Columns {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", a.Quote(c.Target), a.Quote(c.Target))
		}
		stmt += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			a.QuoteAll(params.ConflictColumns), strings.Join(sets, ", "))
	}
	return stmt
}

// MergeTable merges source into target.
func (a *Adapter) MergeTable(ctx context.Context, params core.MergeParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return a.MergeCommon(ctx, a.MergeInitializationQuery(params), []string{a.MergeStatement(params)})
}

// LoadDataframe creates the schema and table, then writes each chunk with COPY.
func (a *Adapter) LoadDataframe(ctx context.Context, df *core.Dataframe, table core.Table, opts core.LoadOptions) error {
	table = a.ResolveTable(table)
	schema := strings.ToLower(table.Metadata.Schema)
	return a.LoadDataframeCommon(ctx, df, adapter.LoadPlan{
		Qualified: a.QualifiedName(table),
		Schema:    schema,
		Write:     copyChunk(schema, table.Name),
	}, opts)
}

// copyChunk returns a writer that streams rows with the COPY protocol.
func copyChunk(schema, name string) adapter.ChunkWriter {
	return func(ctx context.Context, conn *sql.Conn, _ string, chunk *core.Dataframe) error {
		return conn.Raw(func(driverConn any) error {
			pgxConn, ok := driverConn.(*stdlib.Conn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", driverConn)
			}
			rows := make([][]any, chunk.Len())
			for i := range rows {
				rows[i] = chunk.Row(i)
			}
			_, err := pgxConn.Conn().CopyFrom(ctx, pgx.Identifier{schema, name}, chunk.ColumnNames(), pgx.CopyFromRows(rows))
			return err
		})
	}
}

// ExportTable reads the table into a dataframe.
func (a *Adapter) ExportTable(ctx context.Context, table core.Table) (*core.Dataframe, error) {
	return a.ExportTableCommon(ctx, a.QualifiedName(table))
}

// CheckNativePath reports whether the file is a local CSV.
func (a *Adapter) CheckNativePath(file core.File, _ core.Table) bool {
	return a.native.Check(file)
}

// LoadFileNatively loads a local CSV file with COPY FROM STDIN.
func (a *Adapter) LoadFileNatively(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	return a.native.Load(ctx, file, table, ifExists, opts)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
