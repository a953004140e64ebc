package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// ErrNotConnected is returned when an operation runs before Connect.
var ErrNotConnected = errors.New("database connection not established")

// maxInsertParams bounds the bind parameters of one generated INSERT statement.
const maxInsertParams = 30000

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations and compose its
// building blocks into the core.Database operations.
type BaseSQLAdapter struct {
	DB      *sql.DB
	Cfg     core.AdapterConfig
	Logger  *slog.Logger
	Dialect *core.DialectConfig
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// WithConn acquires a dedicated connection for the duration of fn and releases it afterwards,
// including when fn fails.
func (b *BaseSQLAdapter) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()
	return fn(conn)
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	return b.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
		return nil
	})
}

// RunSQL executes a statement that returns no rows.
func (b *BaseSQLAdapter) RunSQL(ctx context.Context, statement string) error {
	return b.Exec(ctx, statement)
}

// QueryDataframe runs a query and materializes the full result.
func (b *BaseSQLAdapter) QueryDataframe(ctx context.Context, sqlStr string, args ...any) (*core.Dataframe, error) {
	var df *core.Dataframe
	err := b.WithConn(ctx, func(conn *sql.Conn) error {
		//nolint:rowserrcheck // rows.Err() is checked by ScanDataframe
		rows, err := conn.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		defer func() { _ = rows.Close() }()

		df, err = ScanDataframe(rows)
		return err
	})
	return df, err
}

// DefaultMetadata returns the connection schema (or process default) and database.
func (b *BaseSQLAdapter) DefaultMetadata() (core.Metadata, error) {
	return core.Metadata{
		Schema:   b.Cfg.ResolvedSchema(),
		Database: b.Cfg.Database,
	}, nil
}

// ResolveTable fills unset table metadata from the adapter defaults.
func (b *BaseSQLAdapter) ResolveTable(table core.Table) core.Table {
	defaults, _ := b.DefaultMetadata()
	table.Metadata = table.Metadata.WithDefaults(defaults)
	return table
}

// QualifiedName returns "schema"."table", using the default schema when the table names none.
func (b *BaseSQLAdapter) QualifiedName(table core.Table) string {
	table = b.ResolveTable(table)
	if table.Metadata.Schema == "" {
		return b.Quote(table.Name)
	}
	return b.Quote(table.Metadata.Schema) + "." + b.Quote(table.Name)
}

// Quote quotes an identifier with the adapter dialect.
func (b *BaseSQLAdapter) Quote(name string) string {
	if b.Dialect == nil {
		return name
	}
	return b.Dialect.QuoteIdentifier(name)
}

// QuoteAll quotes each identifier and joins them with ", ".
func (b *BaseSQLAdapter) QuoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = b.Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// SchemaExistsCommon checks information_schema.schemata, case-insensitively.
func (b *BaseSQLAdapter) SchemaExistsCommon(ctx context.Context, schema string) (bool, error) {
	//nolint:gosec // Placeholder comes from the dialect
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.schemata WHERE lower(schema_name) = lower(%s)",
		b.placeholder(1),
	)
	var count int64
	err := b.WithConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, query, schema).Scan(&count); err != nil {
			return fmt.Errorf("failed to check schema %s: %w", schema, err)
		}
		return nil
	})
	return count > 0, err
}

// ExportTableCommon reads every row of the table into a dataframe.
func (b *BaseSQLAdapter) ExportTableCommon(ctx context.Context, qualified string) (*core.Dataframe, error) {
	b.log().Debug("exporting table", slog.String("table", qualified))
	df, err := b.QueryDataframe(ctx, "SELECT * FROM "+qualified) //nolint:gosec // Identifier is quoted by the dialect
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", qualified, err)
	}
	return df, nil
}

// CreateTableSQL builds CREATE TABLE IF NOT EXISTS with columns typed from the dataframe.
func (b *BaseSQLAdapter) CreateTableSQL(qualified string, df *core.Dataframe) string {
	cols := df.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = b.Quote(c.Name) + " " + b.Dialect.TypeName(c.Type())
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified, strings.Join(defs, ", "))
}

// SanitizeColumns applies the dialect's illegal-character substitution to every column name.
func (b *BaseSQLAdapter) SanitizeColumns(df *core.Dataframe) *core.Dataframe {
	if b.Dialect == nil || len(b.Dialect.IllegalColumnChars) == 0 {
		return df
	}
	return df.Rename(b.Dialect.SanitizeColumnName)
}

func (b *BaseSQLAdapter) placeholder(i int) string {
	if b.Dialect == nil {
		return "?"
	}
	return b.Dialect.FormatPlaceholder(i)
}

func (b *BaseSQLAdapter) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// ScanDataframe drains rows into a dataframe. Column types are inferred from the values;
// all-null columns take their type from the driver's column metadata.
// Declared BOOLEAN columns are read as bool even where the driver returns integers.
func ScanDataframe(rows *sql.Rows) (*core.Dataframe, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	values := make([][]any, len(names))
	for rows.Next() {
		dest := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range dest {
			values[i] = append(values[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	cols := make([]core.Column, len(names))
	for i, name := range names {
		var dbType string
		if i < len(colTypes) {
			dbType = colTypes[i].DatabaseTypeName()
		}
		typed := ColumnTypeFromDatabase(dbType)
		if dbType == "" || (!allNil(values[i]) && typed != core.ColumnBool) {
			cols[i] = core.NewColumn(name, values[i])
			continue
		}
		col, err := core.NewTypedColumn(name, typed, values[i])
		if err != nil {
			return nil, fmt.Errorf("failed to read column %s: %w", name, err)
		}
		cols[i] = col
	}
	return core.NewDataframe(cols...)
}

// ColumnTypeFromDatabase maps a driver type name onto a dataframe column type.
func ColumnTypeFromDatabase(name string) core.ColumnType {
	n := strings.ToUpper(name)
	switch {
	case strings.Contains(n, "INT"):
		return core.ColumnInt64
	case strings.Contains(n, "FLOAT"), strings.Contains(n, "DOUBLE"), strings.Contains(n, "REAL"),
		strings.Contains(n, "NUMERIC"), strings.Contains(n, "DECIMAL"):
		return core.ColumnFloat64
	case strings.Contains(n, "BOOL"):
		return core.ColumnBool
	case strings.Contains(n, "TIMESTAMP"), strings.Contains(n, "DATE"):
		return core.ColumnTimestamp
	default:
		return core.ColumnString
	}
}

func allNil(values []any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}
