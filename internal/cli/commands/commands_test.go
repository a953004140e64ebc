package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadCommand(t *testing.T) {
	cmd := NewLoadCommand()

	assert.Equal(t, "load <file>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"conn", "table", "if-exists", "file-conn", "type", "no-native", "delimiter",
		"skip-leading-rows", "autodetect", "label", "wait"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewMergeCommand(t *testing.T) {
	cmd := NewMergeCommand()

	assert.Equal(t, "merge <source> <target>", cmd.Use)
	for _, flag := range []string{"conn", "columns", "key", "if-conflicts"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestLoadOptions_NativeOptions(t *testing.T) {
	opts := &LoadOptions{}
	cmd := newLoadCommand(opts)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--delimiter", ";", "--skip-leading-rows", "2", "--autodetect=false", "--label", "team=data", "--wait",
	}))

	native, decode, err := opts.nativeOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, ';', decode.Delimiter)
	require.NotNil(t, native.FieldDelimiter)
	assert.Equal(t, ";", *native.FieldDelimiter)
	require.NotNil(t, native.SkipLeadingRows)
	assert.Equal(t, int64(2), *native.SkipLeadingRows)
	require.NotNil(t, native.AutoDetect)
	assert.False(t, *native.AutoDetect)
	assert.Nil(t, native.AllowJaggedRows, "unset flags keep the backend default")
	assert.Nil(t, native.MaxBadRecords)
	assert.Equal(t, map[string]string{"team": "data"}, native.Labels)
	assert.True(t, native.Wait)
}

func TestLoadOptions_Defaults(t *testing.T) {
	opts := &LoadOptions{}
	cmd := newLoadCommand(opts)
	require.NoError(t, cmd.Flags().Parse(nil))

	native, decode, err := opts.nativeOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, core.NativeLoadOptions{}, native)
	assert.Zero(t, decode.Delimiter)
	assert.Equal(t, string(core.LoadReplace), opts.IfExists)
}

func TestParseTableRef(t *testing.T) {
	tests := []struct {
		ref     string
		want    core.Table
		wantErr bool
	}{
		{ref: "users", want: core.Table{ConnID: "wh", Name: "users"}},
		{ref: "raw.users", want: core.Table{ConnID: "wh", Name: "users", Metadata: core.Metadata{Schema: "raw"}}},
		{ref: "proj.raw.users", want: core.Table{ConnID: "wh", Name: "users", Metadata: core.Metadata{Database: "proj", Schema: "raw"}}},
		{ref: "a.b.c.d", wantErr: true},
		{ref: "raw.", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := parseTableRef("wh", tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColumnMapping(t *testing.T) {
	pairs, err := parseColumnMapping([]string{"id", "email:mail", " name "})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnPair{
		{Source: "id", Target: "id"},
		{Source: "email", Target: "mail"},
		{Source: "name", Target: "name"},
	}, pairs)

	_, err = parseColumnMapping([]string{"email:"})
	assert.Error(t, err)
}

func TestRenderDataframe(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	df, err := core.NewDataframe(
		core.NewColumn("id", []any{int64(1), int64(2)}),
		core.NewColumn("at", []any{ts, nil}),
	)
	require.NoError(t, err)

	tests := []struct {
		format string
		want   []string
	}{
		{format: "auto", want: []string{"id,at\n1,2024-01-02T03:04:05Z\n2,\n"}},
		{format: "csv", want: []string{"id,at\n"}},
		{format: "json", want: []string{`{"id":1,"at":"2024-01-02T03:04:05Z"}`, `"at":null`}},
		{format: "table", want: []string{"NULL", "(2 rows)"}},
		{format: "markdown", want: []string{"| --- |", "NULL"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderDataframe(&buf, df, tt.format))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}

	var buf bytes.Buffer
	assert.Error(t, renderDataframe(&buf, df, "xml"))
}

func TestRenderTable_Empty(t *testing.T) {
	df, err := core.NewDataframe(core.NewColumn("id", []any{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, renderDataframe(&buf, df, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())
}
