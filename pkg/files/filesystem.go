package files

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many matched files are read at once.
const DefaultConcurrency = 4

// Options configures the stores and decoding of a FileSystem.
type Options struct {
	GCSCredentialsFile string
	S3                 S3Options
	Azure              AzureOptions
	Decode             DecodeOptions
	Concurrency        int
}

// OptionsFromConnection builds store options from a file connection.
// The connection type selects which store its params configure.
func OptionsFromConnection(cfg core.AdapterConfig) (Options, error) {
	var opts Options
	var target any
	switch strings.ToLower(cfg.Type) {
	case "gcs", "gs", "google_cloud_platform", "gcpbigquery", "bigquery":
		var gcs struct {
			CredentialsFile string `mapstructure:"credentials_file"`
		}
		if err := mapstructure.Decode(cfg.Params, &gcs); err != nil {
			return opts, fmt.Errorf("failed to decode gcs params: %w", err)
		}
		opts.GCSCredentialsFile = gcs.CredentialsFile
		return opts, nil
	case "s3", "aws":
		target = &opts.S3
	case "wasb", "wasbs", "azure":
		target = &opts.Azure
	case "", "local":
		return opts, nil
	default:
		return opts, fmt.Errorf("%w: connection %s of type %q cannot serve files", core.ErrConfig, cfg.ConnID, cfg.Type)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(cfg.Params); err != nil {
		return opts, fmt.Errorf("failed to decode %s params: %w", cfg.Type, err)
	}
	return opts, nil
}

// FileSystem reads and writes dataframes across all supported file locations.
type FileSystem struct {
	stores      map[core.FileLocation]Store
	decode      DecodeOptions
	concurrency int
	logger      *slog.Logger
}

// New creates a FileSystem with a store for every supported location.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger, opts Options) *FileSystem {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	azure := NewAzureStore(opts.Azure)
	httpStore := &HTTPStore{}
	return &FileSystem{
		stores: map[core.FileLocation]Store{
			core.LocationLocal: LocalStore{},
			core.LocationGS:    NewGCSStore(opts.GCSCredentialsFile),
			core.LocationS3:    NewS3Store(opts.S3),
			core.LocationWASB:  azure,
			core.LocationWASBS: azure,
			core.LocationHTTP:  httpStore,
			core.LocationHTTPS: httpStore,
		},
		decode:      opts.Decode,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// SetStore replaces the store used for a location.
func (s *FileSystem) SetStore(location core.FileLocation, store Store) {
	s.stores[location] = store
}

func (s *FileSystem) store(location core.FileLocation) (Store, error) {
	store, ok := s.stores[location]
	if !ok {
		return nil, fmt.Errorf("%w: no store for location %q", core.ErrConfig, location)
	}
	return store, nil
}

// Paths expands the file's pattern into concrete paths. A plain path is returned as is.
func (s *FileSystem) Paths(ctx context.Context, file core.File) ([]string, error) {
	store, err := s.store(file.Location)
	if err != nil {
		return nil, err
	}
	if !file.IsPattern() {
		return []string{file.Path}, nil
	}
	paths, err := store.Glob(ctx, file.Path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", ErrNotExist, file.Path)
	}
	return paths, nil
}

// ReadDataframe reads every file the path matches and stacks them in path order.
func (s *FileSystem) ReadDataframe(ctx context.Context, file core.File) (*core.Dataframe, error) {
	store, err := s.store(file.Location)
	if err != nil {
		return nil, err
	}
	paths, err := s.Paths(ctx, file)
	if err != nil {
		return nil, err
	}

	frames := make([]*core.Dataframe, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			df, err := s.readOne(gctx, store, p, file.Type)
			if err != nil {
				return err
			}
			frames[i] = df
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("read file",
		slog.String("path", file.Path),
		slog.Int("files", len(paths)))
	return concat(frames)
}

func (s *FileSystem) readOne(ctx context.Context, store Store, p string, fileType core.FileType) (*core.Dataframe, error) {
	r, err := store.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	df, err := Decode(r, fileType, s.decode)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return df, nil
}

// FileExistsError is returned when writing over an existing file without overwrite.
type FileExistsError struct {
	Path string
}

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("%s file already exists", e.Path)
}

// WriteDataframe writes the dataframe to the file.
// An existing file is replaced only when overwrite is set.
func (s *FileSystem) WriteDataframe(ctx context.Context, df *core.Dataframe, file core.File, overwrite bool) (err error) {
	if file.IsPattern() {
		return fmt.Errorf("cannot write to pattern %s", file.Path)
	}
	store, err := s.store(file.Location)
	if err != nil {
		return err
	}
	if !overwrite {
		exists, err := store.Exists(ctx, file.Path)
		if err != nil {
			return err
		}
		if exists {
			return &FileExistsError{Path: file.Path}
		}
	}

	w, err := store.Create(ctx, file.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", file.Path, cerr)
		}
	}()

	if err := Encode(w, df, file.Type); err != nil {
		return fmt.Errorf("failed to write %s: %w", file.Path, err)
	}
	s.logger.Debug("wrote file",
		slog.String("path", file.Path),
		slog.String("type", string(file.Type)),
		slog.Int("rows", df.Len()))
	return nil
}

// concat stacks dataframes with the same column names. Column types are
// re-inferred over the combined values, so an int64 file followed by a
// float64 file yields a float64 column and any other drift yields strings.
func concat(frames []*core.Dataframe) (*core.Dataframe, error) {
	if len(frames) == 1 {
		return frames[0], nil
	}
	first := frames[0]
	cols := make([]core.Column, first.Width())
	for i, c := range first.Columns() {
		var values []any
		for _, df := range frames {
			other, ok := df.Column(c.Name)
			if !ok || df.Width() != first.Width() {
				return nil, fmt.Errorf("files have different columns: %v and %v", first.ColumnNames(), df.ColumnNames())
			}
			values = append(values, other.Values()...)
		}
		if !allNil(values) {
			cols[i] = core.NewColumn(c.Name, values)
			continue
		}
		col, err := core.NewTypedColumn(c.Name, c.Type(), values)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return core.NewDataframe(cols...)
}

var _ adapter.FileReader = (*FileSystem)(nil)
