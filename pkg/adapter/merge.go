package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// UniqueIndexQuery returns DDL creating a unique index over the conflict columns of the target.
func (b *BaseSQLAdapter) UniqueIndexQuery(params core.MergeParams, qualifiedTarget string) string {
	name := "uq_" + params.Target.Name + "_" + strings.Join(params.ConflictColumns, "_")
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		b.Quote(sanitizeIndexName(name)), qualifiedTarget, b.QuoteAll(params.ConflictColumns))
}

// MergeInitializationQueryCommon creates the unique index the exception strategy relies on.
// The other strategies suppress conflicts in the statement itself.
func (b *BaseSQLAdapter) MergeInitializationQueryCommon(params core.MergeParams, qualifiedTarget string) string {
	if params.IfConflicts != core.ConflictException {
		return core.NoOpStatement
	}
	return b.UniqueIndexQuery(params, qualifiedTarget)
}

// MergeStatements builds the portable merge:
//   - update: UPDATE ... FROM for matched rows, then anti-join INSERT of unmatched rows
//   - ignore: anti-join INSERT only
//   - exception: plain INSERT, conflicts surface as unique violations
func (b *BaseSQLAdapter) MergeStatements(params core.MergeParams, source, target string) []string {
	srcCols := make([]string, len(params.Columns))
	for i, c := range params.Columns {
		srcCols[i] = "src." + b.Quote(c.Source)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s AS src",
		target, b.QuoteAll(params.TargetColumns()), strings.Join(srcCols, ", "), source)

	if params.IfConflicts == core.ConflictException {
		return []string{insert}
	}

	keys := make([]string, len(params.ConflictColumns))
	for i, k := range params.ConflictColumns {
		keys[i] = fmt.Sprintf("tgt.%s = src.%s", b.Quote(k), b.Quote(params.SourceFor(k)))
	}
	on := strings.Join(keys, " AND ")
	antiJoin := fmt.Sprintf("%s WHERE NOT EXISTS (SELECT 1 FROM %s AS tgt WHERE %s)", insert, target, on)

	if params.IfConflicts == core.ConflictIgnore {
		return []string{antiJoin}
	}

	conflict := make(map[string]bool, len(params.ConflictColumns))
	for _, k := range params.ConflictColumns {
		conflict[k] = true
	}
	var sets []string
	for _, c := range params.Columns {
		if conflict[c.Target] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = src.%s", b.Quote(c.Target), b.Quote(c.Source)))
	}
	if len(sets) == 0 {
		return []string{antiJoin}
	}
	update := fmt.Sprintf("UPDATE %s AS tgt SET %s FROM %s AS src WHERE %s",
		target, strings.Join(sets, ", "), source, on)
	return []string{update, antiJoin}
}

// MergeCommon runs the initialization query and the merge statements in one transaction
// on a dedicated connection.
func (b *BaseSQLAdapter) MergeCommon(ctx context.Context, initQuery string, statements []string) error {
	return b.WithConn(ctx, func(conn *sql.Conn) error {
		if initQuery != core.NoOpStatement {
			b.log().Debug("running merge initialization", slog.String("sql", initQuery))
			if _, err := conn.ExecContext(ctx, initQuery); err != nil {
				return fmt.Errorf("failed to initialize merge: %w", err)
			}
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin merge: %w", err)
		}
		for _, stmt := range statements {
			b.log().Debug("running merge", slog.String("sql", stmt))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to merge: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit merge: %w", err)
		}
		return nil
	})
}

func sanitizeIndexName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
