package adapter

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// fakeAdapter records calls and keeps loaded dataframes in memory.
type fakeAdapter struct {
	native     NativePaths
	connected  Config
	closed     bool
	loaded     map[string]*core.Dataframe
	nativeLoad []core.File
	loadOpts   core.LoadOptions
}

func newFakeAdapter(_ *slog.Logger) Adapter {
	f := &fakeAdapter{loaded: map[string]*core.Dataframe{}}
	f.native = NativePaths{
		Backend: "fake",
		Loaders: map[core.FileLocation]NativeLoader{core.LocationGS: f.loadNative},
		Formats: map[core.FileType]string{core.TypeCSV: "CSV"},
	}
	return f
}

func (f *fakeAdapter) Connect(_ context.Context, cfg Config) error {
	f.connected = cfg
	return nil
}

func (f *fakeAdapter) SQLType() string { return "fake" }

func (f *fakeAdapter) DefaultMetadata() (core.Metadata, error) {
	return core.Metadata{Schema: "tmp"}, nil
}

func (f *fakeAdapter) QualifiedName(t core.Table) string { return t.Name }

func (f *fakeAdapter) SchemaExists(context.Context, string) (bool, error) { return true, nil }

func (f *fakeAdapter) MergeInitializationQuery(core.MergeParams) string { return core.NoOpStatement }

func (f *fakeAdapter) LoadDataframe(_ context.Context, df *core.Dataframe, t core.Table, opts core.LoadOptions) error {
	f.loaded[t.Name] = df
	f.loadOpts = opts
	return nil
}

func (f *fakeAdapter) ExportTable(_ context.Context, t core.Table) (*core.Dataframe, error) {
	return f.loaded[t.Name], nil
}

func (f *fakeAdapter) MergeTable(context.Context, core.MergeParams) error { return nil }

func (f *fakeAdapter) CheckNativePath(file core.File, _ core.Table) bool { return f.native.Check(file) }

func (f *fakeAdapter) LoadFileNatively(ctx context.Context, file core.File, t core.Table, ifExists core.LoadExistStrategy, opts core.NativeLoadOptions) error {
	return f.native.Load(ctx, file, t, ifExists, opts)
}

func (f *fakeAdapter) loadNative(_ context.Context, file core.File, _ core.Table, _ core.LoadExistStrategy, _ core.NativeLoadOptions) error {
	f.nativeLoad = append(f.nativeLoad, file)
	return nil
}

func (f *fakeAdapter) RunSQL(context.Context, string) error { return nil }

func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func init() {
	Register("fake_test_adapter", newFakeAdapter)
}
