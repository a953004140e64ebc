package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativePaths(t *testing.T) {
	var called []core.File
	paths := NativePaths{
		Backend: "bigquery",
		Loaders: map[core.FileLocation]NativeLoader{
			core.LocationGS: func(_ context.Context, f core.File, _ core.Table, _ core.LoadExistStrategy, _ core.NativeLoadOptions) error {
				called = append(called, f)
				return nil
			},
		},
		Formats: map[core.FileType]string{core.TypeCSV: "CSV", core.TypeParquet: "PARQUET"},
	}
	table := core.NewTable("bq", "t", core.Metadata{})

	tests := []struct {
		name      string
		file      core.File
		check     bool
		expectErr bool
	}{
		{"gs csv", core.File{Path: "gs://b/a.csv", Location: core.LocationGS, Type: core.TypeCSV}, true, false},
		{"gs parquet", core.File{Path: "gs://b/a.parquet", Location: core.LocationGS, Type: core.TypeParquet}, true, false},
		{"gs json unsupported format", core.File{Path: "gs://b/a.json", Location: core.LocationGS, Type: core.TypeJSON}, false, true},
		{"s3 unsupported location", core.File{Path: "s3://b/a.csv", Location: core.LocationS3, Type: core.TypeCSV}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.check, paths.Check(tt.file))

			err := paths.Load(context.Background(), tt.file, table, core.LoadReplace, core.NativeLoadOptions{})
			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrConfig))
				var npe *core.NativePathError
				require.ErrorAs(t, err, &npe)
				assert.Equal(t, "bigquery", npe.Backend)
				assert.Equal(t, tt.file.Location, npe.Location)
				return
			}
			require.NoError(t, err)
		})
	}
	assert.Len(t, called, 2)

	format, err := paths.Format(core.TypeParquet)
	require.NoError(t, err)
	assert.Equal(t, "PARQUET", format)
}

func TestNativePaths_Patterns(t *testing.T) {
	loads := 0
	paths := NativePaths{
		Backend: "postgres",
		Loaders: map[core.FileLocation]NativeLoader{
			core.LocationLocal: func(context.Context, core.File, core.Table, core.LoadExistStrategy, core.NativeLoadOptions) error {
				loads++
				return nil
			},
		},
		Formats: map[core.FileType]string{core.TypeCSV: "csv"},
	}
	table := core.NewTable("pg", "t", core.Metadata{})

	glob, err := core.NewFile("data/*.csv", "", "")
	require.NoError(t, err)
	require.True(t, glob.IsPattern())
	single, err := core.NewFile("data/a.csv", "", "")
	require.NoError(t, err)

	assert.False(t, paths.Check(glob), "loader opens a single path")
	assert.True(t, paths.Check(single))

	err = paths.Load(context.Background(), glob, table, core.LoadReplace, core.NativeLoadOptions{})
	require.ErrorIs(t, err, core.ErrConfig)
	assert.Contains(t, err.Error(), "data/*.csv")
	assert.Equal(t, 0, loads)

	paths.Globs = true
	assert.True(t, paths.Check(glob))
	require.NoError(t, paths.Load(context.Background(), glob, table, core.LoadReplace, core.NativeLoadOptions{}))
	assert.Equal(t, 1, loads)
}

type stubReader struct {
	df  *core.Dataframe
	err error
}

func (r stubReader) ReadDataframe(context.Context, core.File) (*core.Dataframe, error) {
	return r.df, r.err
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	df, err := core.NewDataframe(core.NewColumn("id", []any{1, 2}))
	require.NoError(t, err)
	table := core.NewTable("fake", "target", core.Metadata{})

	t.Run("native path when supported", func(t *testing.T) {
		fake := newFakeAdapter(nil).(*fakeAdapter)
		file := core.File{Path: "gs://b/a.csv", Location: core.LocationGS, Type: core.TypeCSV}

		require.NoError(t, LoadFile(ctx, fake, stubReader{}, file, table, LoadFileOptions{}))
		assert.Len(t, fake.nativeLoad, 1)
		assert.Empty(t, fake.loaded)
	})

	t.Run("dataframe fallback", func(t *testing.T) {
		fake := newFakeAdapter(nil).(*fakeAdapter)
		file := core.File{Path: "data.csv", Location: core.LocationLocal, Type: core.TypeCSV}

		err := LoadFile(ctx, fake, stubReader{df: df}, file, table, LoadFileOptions{IfExists: core.LoadAppend, ChunkSize: 10})
		require.NoError(t, err)
		assert.Empty(t, fake.nativeLoad)
		assert.Same(t, df, fake.loaded["target"])
		assert.Equal(t, core.LoadOptions{IfExists: core.LoadAppend, ChunkSize: 10}, fake.loadOpts)
	})

	t.Run("native disabled", func(t *testing.T) {
		fake := newFakeAdapter(nil).(*fakeAdapter)
		file := core.File{Path: "gs://b/a.csv", Location: core.LocationGS, Type: core.TypeCSV}

		require.NoError(t, LoadFile(ctx, fake, stubReader{df: df}, file, table, LoadFileOptions{DisableNative: true}))
		assert.Empty(t, fake.nativeLoad)
		assert.Equal(t, core.LoadReplace, fake.loadOpts.IfExists)
	})

	t.Run("reader error", func(t *testing.T) {
		fake := newFakeAdapter(nil).(*fakeAdapter)
		file := core.File{Path: "data.csv", Location: core.LocationLocal, Type: core.TypeCSV}

		err := LoadFile(ctx, fake, stubReader{err: assert.AnError}, file, table, LoadFileOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("no reader and no native path", func(t *testing.T) {
		fake := newFakeAdapter(nil).(*fakeAdapter)
		file := core.File{Path: "data.csv", Location: core.LocationLocal, Type: core.TypeCSV}

		err := LoadFile(ctx, fake, nil, file, table, LoadFileOptions{})
		assert.ErrorIs(t, err, core.ErrConfig)
	})
}
