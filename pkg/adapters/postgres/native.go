package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// loadLocalCSV loads a local CSV file using COPY FROM STDIN.
// A new table is created with TEXT columns named after the header.
func (a *Adapter) loadLocalCSV(ctx context.Context, file core.File, table core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	table = a.ResolveTable(table)
	qualified := a.QualifiedName(table)

	absPath, err := filepath.Abs(strings.TrimPrefix(file.Path, "file://"))
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	f, err := os.Open(absPath) //nolint:gosec // path is provided by the caller
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	delimiter := ","
	if opts.FieldDelimiter != nil {
		delimiter = *opts.FieldDelimiter
	}

	reader := csv.NewReader(f)
	if len(delimiter) == 1 {
		reader.Comma = rune(delimiter[0])
	}
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	a.Logger.Debug("copying csv into postgres", slog.String("path", absPath), slog.String("table", qualified))

	return a.WithConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range a.createTextTableSQL(table, qualified, headers, ifExists) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to prepare %s: %w", qualified, err)
			}
		}

		copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true, DELIMITER %s)",
			qualified, a.QuoteAll(headers), quoteLiteral(delimiter))
		return conn.Raw(func(driverConn any) error {
			pgxConn, ok := driverConn.(*stdlib.Conn)
			if !ok {
				return fmt.Errorf("unexpected driver connection %T", driverConn)
			}
			if _, err := pgxConn.Conn().PgConn().CopyFrom(ctx, f, copySQL); err != nil {
				return fmt.Errorf("failed to copy data: %w", err)
			}
			return nil
		})
	})
}

// createTextTableSQL prepares the target for a CSV copy.
func (a *Adapter) createTextTableSQL(table core.Table, qualified string, columns []string, ifExists core.LoadExistStrategy) []string {
	colDefs := make([]string, len(columns))
	for i, col := range columns {
		colDefs[i] = a.Quote(col) + " TEXT"
	}
	stmts := []string{"CREATE SCHEMA IF NOT EXISTS " + a.Quote(strings.ToLower(table.Metadata.Schema))}
	if ifExists != core.LoadAppend {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+qualified)
	}
	return append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", qualified, strings.Join(colDefs, ", ")))
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
