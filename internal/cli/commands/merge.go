package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/spf13/cobra"
)

// MergeOptions holds options for the merge command.
type MergeOptions struct {
	ConnID      string
	Columns     []string
	Keys        []string
	IfConflicts string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	opts := &MergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge <source> <target>",
		Short: "Merge one warehouse table into another",
		Long: `Insert the rows of the source table into the target table.

Columns map source to target names as "source:target"; a bare name is used
on both sides. Keys name the target columns that identify a row.

--if-conflicts decides what happens to source rows whose keys already exist:
  exception  fail the merge
  ignore     keep the target row
  update     overwrite the target row`,
		Example: `  dfbridge merge staging.users analytics.users --conn wh --columns id,name,email:mail --key id --if-conflicts update`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConnID, "conn", "", "Warehouse connection id")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "Column mapping, source[:target]")
	cmd.Flags().StringSliceVar(&opts.Keys, "key", nil, "Target conflict columns")
	cmd.Flags().StringVar(&opts.IfConflicts, "if-conflicts", string(core.ConflictException), "exception, ignore or update")

	_ = cmd.MarkFlagRequired("conn")
	_ = cmd.MarkFlagRequired("columns")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// parseColumnMapping parses "source[:target]" entries.
func parseColumnMapping(entries []string) ([]core.ColumnPair, error) {
	pairs := make([]core.ColumnPair, 0, len(entries))
	for _, e := range entries {
		src, tgt, found := strings.Cut(strings.TrimSpace(e), ":")
		if !found {
			tgt = src
		}
		if src == "" || tgt == "" {
			return nil, fmt.Errorf("invalid column mapping %q", e)
		}
		pairs = append(pairs, core.ColumnPair{Source: src, Target: tgt})
	}
	return pairs, nil
}

func runMerge(cmd *cobra.Command, sourceRef, targetRef string, opts *MergeOptions) error {
	strategy, err := core.ParseMergeConflictStrategy(opts.IfConflicts)
	if err != nil {
		return err
	}
	columns, err := parseColumnMapping(opts.Columns)
	if err != nil {
		return err
	}
	source, err := parseTableRef(opts.ConnID, sourceRef)
	if err != nil {
		return err
	}
	target, err := parseTableRef(opts.ConnID, targetRef)
	if err != nil {
		return err
	}
	params := core.MergeParams{
		Source:          source,
		Target:          target,
		Columns:         columns,
		ConflictColumns: opts.Keys,
		IfConflicts:     strategy,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	db, err := s.database(cmd, opts.ConnID)
	if err != nil {
		return err
	}
	if err := db.MergeTable(cmd.Context(), params); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s (%s)\n",
		db.QualifiedName(source), db.QualifiedName(target), strategy)
	return nil
}
