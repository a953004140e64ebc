package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dfbridge/internal/testutil"
	"github.com/leapstack-labs/dfbridge/pkg/adapter"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.sqlite")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			require.NoError(t, adp.RunSQL(ctx, "CREATE TABLE t (id INTEGER)"))
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	ctx := context.Background()

	assert.ErrorIs(t, adp.RunSQL(ctx, "SELECT 1"), adapter.ErrNotConnected)
	_, err := adp.ExportTable(ctx, core.Table{Name: "t"})
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_Registered(t *testing.T) {
	for _, name := range []string{"sqlite", "sqlite3"} {
		adp, err := adapter.NewAdapter(core.AdapterConfig{Type: name}, nil)
		require.NoError(t, err)
		assert.IsType(t, &Adapter{}, adp)
	}
}

func TestAdapter_QualifiedName(t *testing.T) {
	adp := New(nil)
	table := core.NewTable("sqlite", "orders", core.Metadata{Schema: "ignored"})

	assert.Equal(t, `"orders"`, adp.QualifiedName(table))
}

func TestAdapter_SchemaExists(t *testing.T) {
	adp := connect(t)
	ctx := context.Background()

	ok, err := adp.SchemaExists(ctx, "main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adp.SchemaExists(ctx, "analytics")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_LoadAndExport(t *testing.T) {
	adp := connect(t)
	ctx := context.Background()
	table := core.NewTable("sqlite", "people", core.Metadata{})

	first, err := core.NewDataframe(
		core.NewColumn("id", []any{1, 2, 3}),
		core.NewColumn("name", []any{"a", "b", nil}),
		core.NewColumn("score", []any{1.5, 2.5, 3.5}),
	)
	require.NoError(t, err)

	require.NoError(t, adp.LoadDataframe(ctx, first, table, core.LoadOptions{ChunkSize: 2}))

	out, err := adp.ExportTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score"}, out.ColumnNames())
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, []any{int64(3), nil, 3.5}, out.Row(2))

	require.NoError(t, adp.LoadDataframe(ctx, first.Slice(0, 1), table, core.LoadOptions{IfExists: core.LoadAppend}))
	out, err = adp.ExportTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len(), "append adds rows")

	require.NoError(t, adp.LoadDataframe(ctx, first.Slice(0, 2), table, core.LoadOptions{IfExists: core.LoadReplace}))
	out, err = adp.ExportTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len(), "replace drops existing rows")
}

func TestAdapter_LoadAndExport_TypedRoundTrip(t *testing.T) {
	adp := connect(t)
	ctx := context.Background()
	table := core.NewTable("sqlite", "flags", core.Metadata{})

	df, err := core.NewDataframe(
		core.NewColumn("a.b", []any{true, false}),
		core.NewColumn("maybe", []any{nil, true}),
		core.NewColumn("mixed", []any{1, "x"}),
	)
	require.NoError(t, err)
	require.NoError(t, adp.LoadDataframe(ctx, df, table, core.LoadOptions{}))

	out, err := adp.ExportTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b", "maybe", "mixed"}, out.ColumnNames(), "sqlite quotes dotted names instead of substituting")

	flags, _ := out.Column("a.b")
	assert.Equal(t, core.ColumnBool, flags.Type())
	assert.Equal(t, []any{true, false}, flags.Values())
	maybe, _ := out.Column("maybe")
	assert.Equal(t, []any{nil, true}, maybe.Values())
	mixed, _ := out.Column("mixed")
	assert.Equal(t, []any{"1", "x"}, mixed.Values())
}

func TestAdapter_LoadEmptyDataframeCreatesTable(t *testing.T) {
	adp := connect(t)
	ctx := context.Background()
	table := core.NewTable("sqlite", "", core.Metadata{})

	df, err := core.NewDataframe(core.NewColumn("id", []any{}))
	require.NoError(t, err)
	require.NoError(t, adp.LoadDataframe(ctx, df, table, core.LoadOptions{}))

	out, err := adp.ExportTable(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, []string{"id"}, out.ColumnNames())
}

func TestAdapter_MergeTable(t *testing.T) {
	tests := []struct {
		name      string
		strategy  core.MergeConflictStrategy
		expectErr bool
		wantRows  map[int64]string
	}{
		{
			name:     "ignore keeps target rows",
			strategy: core.ConflictIgnore,
			wantRows: map[int64]string{1: "old", 2: "old", 3: "new"},
		},
		{
			name:     "update overwrites matched rows",
			strategy: core.ConflictUpdate,
			wantRows: map[int64]string{1: "old", 2: "new", 3: "new"},
		},
		{
			name:      "exception fails on conflict",
			strategy:  core.ConflictException,
			expectErr: true,
			wantRows:  map[int64]string{1: "old", 2: "old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := connect(t)
			ctx := context.Background()
			target := core.NewTable("sqlite", "target", core.Metadata{})
			source := core.NewTable("sqlite", "source", core.Metadata{})

			tdf, err := core.NewDataframe(core.NewColumn("id", []any{1, 2}), core.NewColumn("val", []any{"old", "old"}))
			require.NoError(t, err)
			sdf, err := core.NewDataframe(core.NewColumn("sid", []any{2, 3}), core.NewColumn("sval", []any{"new", "new"}))
			require.NoError(t, err)
			require.NoError(t, adp.LoadDataframe(ctx, tdf, target, core.LoadOptions{}))
			require.NoError(t, adp.LoadDataframe(ctx, sdf, source, core.LoadOptions{}))

			err = adp.MergeTable(ctx, core.MergeParams{
				Source:          source,
				Target:          target,
				Columns:         []core.ColumnPair{{Source: "sid", Target: "id"}, {Source: "sval", Target: "val"}},
				ConflictColumns: []string{"id"},
				IfConflicts:     tt.strategy,
			})
			if tt.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			out, err := adp.ExportTable(ctx, target)
			require.NoError(t, err)
			got := map[int64]string{}
			for _, rec := range out.Records() {
				got[rec["id"].(int64)] = rec["val"].(string)
			}
			assert.Equal(t, tt.wantRows, got)
		})
	}
}

func TestAdapter_MergeInvalidParams(t *testing.T) {
	adp := connect(t)
	err := adp.MergeTable(context.Background(), core.MergeParams{IfConflicts: core.ConflictIgnore})
	assert.Error(t, err)
}

func TestAdapter_NativePath(t *testing.T) {
	adp := New(nil)
	file := core.File{Path: "data.csv", Location: core.LocationLocal, Type: core.TypeCSV}

	assert.False(t, adp.CheckNativePath(file, core.Table{Name: "t"}))
	err := adp.LoadFileNatively(context.Background(), file, core.Table{Name: "t"}, core.LoadReplace, core.NativeLoadOptions{})
	assert.ErrorIs(t, err, core.ErrConfig)
}
