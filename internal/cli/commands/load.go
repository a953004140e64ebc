package commands

import (
	"fmt"
	"unicode/utf8"

	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/leapstack-labs/dfbridge/pkg/files"
	"github.com/spf13/cobra"
)

// LoadOptions holds options for the load command.
type LoadOptions struct {
	ConnID      string
	Table       string
	IfExists    string
	FileConnID  string
	FileType    string
	NoNative    bool
	Delimiter   string
	SkipRows    int64
	AutoDetect  bool
	Jagged      bool
	Newlines    bool
	IgnoreExtra bool
	MaxBad      int64
	Labels      map[string]string
	Wait        bool
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return newLoadCommand(&LoadOptions{})
}

func newLoadCommand(opts *LoadOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a file into a warehouse table",
		Long: `Load a local or remote file into a warehouse table.

The backend's native loader is used when it supports the file's location
and type. Otherwise the file is read into a dataframe and written in chunks.
Glob patterns load every matching file.`,
		Example: `  # Load a local CSV into the default schema
  dfbridge load data/users.csv --conn wh --table users

  # Append parquet files from S3 using the "lake" connection's credentials
  dfbridge load 's3://bucket/events/*.parquet' --conn wh --table raw.events --if-exists append --file-conn lake

  # BigQuery load job with overrides, waiting for completion
  dfbridge load gs://bucket/data.csv --conn bq --table ds.data --skip-leading-rows 1 --label team=data --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConnID, "conn", "", "Warehouse connection id")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Target table ([database.][schema.]table)")
	cmd.Flags().StringVar(&opts.IfExists, "if-exists", string(core.LoadReplace), "replace or append")
	cmd.Flags().StringVar(&opts.FileConnID, "file-conn", "", "Connection id whose credentials read the file")
	cmd.Flags().StringVar(&opts.FileType, "type", "", "File type (csv, json, ndjson, parquet); detected from the extension by default")
	cmd.Flags().BoolVar(&opts.NoNative, "no-native", false, "Always load through a dataframe")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", "", "CSV field delimiter")
	cmd.Flags().Int64Var(&opts.SkipRows, "skip-leading-rows", 0, "Rows to skip at the start of the file (native loads)")
	cmd.Flags().BoolVar(&opts.AutoDetect, "autodetect", true, "Detect the schema from the file (native loads)")
	cmd.Flags().BoolVar(&opts.Jagged, "allow-jagged-rows", false, "Accept rows missing trailing columns (native loads)")
	cmd.Flags().BoolVar(&opts.Newlines, "allow-quoted-newlines", false, "Accept quoted newlines in CSV (native loads)")
	cmd.Flags().BoolVar(&opts.IgnoreExtra, "ignore-unknown-values", false, "Ignore values not in the schema (native loads)")
	cmd.Flags().Int64Var(&opts.MaxBad, "max-bad-records", 0, "Bad records tolerated before failing (native loads)")
	cmd.Flags().StringToStringVar(&opts.Labels, "label", nil, "Load job label key=value (native loads)")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Wait for asynchronous load jobs to finish")

	_ = cmd.MarkFlagRequired("conn")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runLoad(cmd *cobra.Command, path string, opts *LoadOptions) error {
	ifExists, err := core.ParseLoadExistStrategy(opts.IfExists)
	if err != nil {
		return err
	}
	table, err := parseTableRef(opts.ConnID, opts.Table)
	if err != nil {
		return err
	}
	file, err := core.NewFile(path, opts.FileConnID, core.FileType(opts.FileType))
	if err != nil {
		return err
	}

	native, decode, err := opts.nativeOptions(cmd)
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
	fs, err := s.fileSystem(opts.FileConnID, decode)
	if err != nil {
		return err
	}

	if err := adapter.LoadFile(cmd.Context(), db, fs, file, table, adapter.LoadFileOptions{
		IfExists:      ifExists,
		ChunkSize:     s.cfg.ChunkSize,
		Native:        native,
		DisableNative: opts.NoNative,
	}); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s into %s\n", path, db.QualifiedName(table))
	return nil
}

// nativeOptions converts the explicitly set flags into native load overrides.
func (o *LoadOptions) nativeOptions(cmd *cobra.Command) (core.NativeLoadOptions, files.DecodeOptions, error) {
	flags := cmd.Flags()
	native := core.NativeLoadOptions{Labels: o.Labels, Wait: o.Wait}
	var decode files.DecodeOptions

	if flags.Changed("delimiter") {
		r, size := utf8.DecodeRuneInString(o.Delimiter)
		if r == utf8.RuneError || size != len(o.Delimiter) {
			return native, decode, fmt.Errorf("--delimiter must be a single character, got %q", o.Delimiter)
		}
		decode.Delimiter = r
		native.FieldDelimiter = &o.Delimiter
	}
	if flags.Changed("skip-leading-rows") {
		native.SkipLeadingRows = &o.SkipRows
	}
	if flags.Changed("autodetect") {
		native.AutoDetect = &o.AutoDetect
	}
	if flags.Changed("allow-jagged-rows") {
		native.AllowJaggedRows = &o.Jagged
	}
	if flags.Changed("allow-quoted-newlines") {
		native.AllowQuotedNewlines = &o.Newlines
	}
	if flags.Changed("ignore-unknown-values") {
		native.IgnoreUnknownValues = &o.IgnoreExtra
	}
	if flags.Changed("max-bad-records") {
		native.MaxBadRecords = &o.MaxBad
	}
	return native, decode, nil
}
