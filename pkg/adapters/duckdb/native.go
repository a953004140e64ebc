package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// loadNative reads the file with read_csv_auto / read_json_auto / read_parquet.
// Remote locations go through the httpfs extension.
func (a *Adapter) loadNative(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	table = a.ResolveTable(table)
	source, err := a.tableFunction(file, opts)
	if err != nil {
		return err
	}
	qualified := a.QualifiedName(table)

	statements := []string{"CREATE SCHEMA IF NOT EXISTS " + a.Quote(table.Metadata.Schema)}
	if file.Location.IsRemote() {
		statements = append([]string{"INSTALL httpfs", "LOAD httpfs"}, statements...)
	}
	if ifExists == core.LoadAppend {
		statements = append(statements,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM %s LIMIT 0", qualified, source),
			fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", qualified, source))
	} else {
		statements = append(statements,
			fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", qualified, source))
	}

	a.Logger.Debug("loading file with duckdb", slog.String("path", file.Path), slog.String("table", qualified))

	return a.WithConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to load %s into %s: %w", file.Path, qualified, err)
			}
		}
		return nil
	})
}

// tableFunction renders the DuckDB table function call that reads file.
func (a *Adapter) tableFunction(file core.File, opts core.NativeLoadOptions) (string, error) {
	fn, err := a.native.Format(file.Type)
	if err != nil {
		return "", err
	}

	path := file.Path
	if file.Location == core.LocationLocal {
		path = strings.TrimPrefix(path, "file://")
		if path, err = filepath.Abs(path); err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	args := []string{quoteLiteral(path)}
	switch file.Type {
	case core.TypeCSV:
		args = append(args, "header=true")
		if opts.FieldDelimiter != nil {
			args = append(args, "delim="+quoteLiteral(*opts.FieldDelimiter))
		}
		if opts.SkipLeadingRows != nil {
			args = append(args, fmt.Sprintf("skip=%d", *opts.SkipLeadingRows))
		}
		if opts.AllowJaggedRows != nil && *opts.AllowJaggedRows {
			args = append(args, "null_padding=true")
		}
		if opts.IgnoreUnknownValues != nil && *opts.IgnoreUnknownValues {
			args = append(args, "ignore_errors=true")
		}
	case core.TypeNDJSON:
		args = append(args, "format='newline_delimited'")
	case core.TypeJSON:
		args = append(args, "format='auto'")
	}
	return fmt.Sprintf("%s(%s)", fn, strings.Join(args, ", ")), nil
}
