package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// ChunkWriter writes one chunk of rows into an existing table over conn.
type ChunkWriter func(ctx context.Context, conn *sql.Conn, qualified string, chunk *core.Dataframe) error

// LoadPlan describes how a backend loads a dataframe.
type LoadPlan struct {
	// Qualified is the target identifier.
	Qualified string

	// Schema is created before loading when non-empty.
	Schema string

	// Write inserts a chunk; nil uses multi-row INSERT statements.
	Write ChunkWriter
}

// LoadDataframeCommon creates (or replaces) the target and writes the dataframe chunk by chunk.
// Chunks are committed independently; a failure leaves earlier chunks in place.
func (b *BaseSQLAdapter) LoadDataframeCommon(ctx context.Context, df *core.Dataframe, plan LoadPlan, opts core.LoadOptions) error {
	opts = opts.WithDefaults()
	df = b.SanitizeColumns(df)
	if df.Width() == 0 {
		return fmt.Errorf("cannot load a dataframe without columns into %s", plan.Qualified)
	}
	write := plan.Write
	if write == nil {
		write = b.InsertChunk
	}

	b.log().Debug("loading dataframe",
		slog.String("table", plan.Qualified),
		slog.Int("rows", df.Len()),
		slog.String("if_exists", string(opts.IfExists)),
		slog.Int("chunk_size", opts.ChunkSize))

	return b.WithConn(ctx, func(conn *sql.Conn) error {
		if plan.Schema != "" {
			stmt := "CREATE SCHEMA IF NOT EXISTS " + b.Quote(plan.Schema)
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema %s: %w", plan.Schema, err)
			}
		}
		if opts.IfExists == core.LoadReplace {
			if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+plan.Qualified); err != nil {
				return fmt.Errorf("failed to drop %s: %w", plan.Qualified, err)
			}
		}
		if _, err := conn.ExecContext(ctx, b.CreateTableSQL(plan.Qualified, df)); err != nil {
			return fmt.Errorf("failed to create %s: %w", plan.Qualified, err)
		}

		for i, chunk := range df.Chunks(opts.ChunkSize) {
			if chunk.Len() == 0 {
				continue
			}
			if err := write(ctx, conn, plan.Qualified, chunk); err != nil {
				return fmt.Errorf("failed to load chunk %d into %s: %w", i, plan.Qualified, err)
			}
		}
		return nil
	})
}

// InsertChunk writes rows with multi-row INSERT statements using dialect placeholders.
func (b *BaseSQLAdapter) InsertChunk(ctx context.Context, conn *sql.Conn, qualified string, chunk *core.Dataframe) error {
	width := chunk.Width()
	batch := maxInsertParams / width
	if batch < 1 {
		batch = 1
	}
	cols := b.QuoteAll(chunk.ColumnNames())

	for start := 0; start < chunk.Len(); start += batch {
		end := min(start+batch, chunk.Len())

		var sb strings.Builder
		args := make([]any, 0, (end-start)*width)
		fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", qualified, cols)
		for r := start; r < end; r++ {
			if r > start {
				sb.WriteString(", ")
			}
			sb.WriteString("(")
			for c, v := range chunk.Row(r) {
				if c > 0 {
					sb.WriteString(", ")
				}
				args = append(args, v)
				sb.WriteString(b.placeholder(len(args)))
			}
			sb.WriteString(")")
		}
		if _, err := conn.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}
