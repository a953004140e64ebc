package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertTable(t *testing.T) {
	current := NewTable("pg", "orders", Metadata{Schema: "s"})

	tests := []struct {
		name  string
		input any
		want  Table
		ok    bool
	}{
		{"table value", current, current, true},
		{"table pointer", &current, current, true},
		{
			"legacy table",
			LegacyTable{TableName: "orders", ConnID: "pg", Schema: "s", Database: "db", Warehouse: "wh"},
			Table{ConnID: "pg", Name: "orders", Metadata: Metadata{Schema: "s", Database: "db", Warehouse: "wh"}},
			true,
		},
		{"nil table pointer", (*Table)(nil), Table{}, false},
		{"string", "orders", Table{}, false},
		{"nil", nil, Table{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConvertTable(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertTable_TempTable(t *testing.T) {
	got, ok := ConvertTable(&TempTable{ConnID: "bq", Schema: "tmp", Database: "proj"})
	require.True(t, ok)

	assert.True(t, got.Temp)
	assert.NotEmpty(t, got.Name)
	assert.Equal(t, "bq", got.ConnID)
	assert.Equal(t, Metadata{Schema: "tmp", Database: "proj"}, got.Metadata)
}

func TestConvertTable_Idempotent(t *testing.T) {
	once, ok := ConvertTable(LegacyTable{ConnID: "pg"})
	require.True(t, ok)

	twice, ok := ConvertTable(once)
	require.True(t, ok)
	assert.Equal(t, once, twice)
}
