package commands

import (
	"fmt"

	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/leapstack-labs/dfbridge/pkg/files"
	"github.com/spf13/cobra"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	ConnID     string
	To         string
	FileConnID string
	FileType   string
	Overwrite  bool
	Lower      bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export a warehouse table",
		Long: `Read a whole warehouse table into a dataframe and print it, or write it
to a file with --to.

Printed output follows --output: table, csv, json or markdown. The default
(auto) prints a table on a terminal and csv otherwise.`,
		Example: `  # Print a table
  dfbridge export analytics.users --conn wh

  # Write it to S3 as parquet
  dfbridge export analytics.users --conn wh --to s3://bucket/users.parquet --file-conn lake --overwrite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConnID, "conn", "", "Warehouse connection id")
	cmd.Flags().StringVar(&opts.To, "to", "", "Write the table to this file instead of printing it")
	cmd.Flags().StringVar(&opts.FileConnID, "file-conn", "", "Connection id whose credentials write the file")
	cmd.Flags().StringVar(&opts.FileType, "type", "", "File type for --to; detected from the extension by default")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&opts.Lower, "lower", false, "Lower-case column names")

	_ = cmd.MarkFlagRequired("conn")

	return cmd
}

func runExport(cmd *cobra.Command, ref string, opts *ExportOptions) error {
	table, err := parseTableRef(opts.ConnID, ref)
	if err != nil {
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

	df, err := db.ExportTable(cmd.Context(), table)
	if err != nil {
		return err
	}
	if opts.Lower {
		df = df.LowerColumnNames()
	}

	if opts.To == "" {
		return renderDataframe(cmd.OutOrStdout(), df, s.cfg.Output)
	}

	file, err := core.NewFile(opts.To, opts.FileConnID, core.FileType(opts.FileType))
	if err != nil {
		return err
	}
	fs, err := s.fileSystem(opts.FileConnID, files.DecodeOptions{})
	if err != nil {
		return err
	}
	if err := fs.WriteDataframe(cmd.Context(), df, file, opts.Overwrite); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows from %s to %s\n", df.Len(), db.QualifiedName(table), opts.To)
	return nil
}
