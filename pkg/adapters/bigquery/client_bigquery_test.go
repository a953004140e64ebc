package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnFromField(t *testing.T) {
	day := civil.Date{Year: 2024, Month: time.January, Day: 2}
	tests := []struct {
		name   string
		field  *bigquery.FieldSchema
		values []bigquery.Value
		typ    core.ColumnType
		want   []any
	}{
		{
			name:   "date",
			field:  &bigquery.FieldSchema{Name: "d", Type: bigquery.DateFieldType},
			values: []bigquery.Value{day, nil},
			typ:    core.ColumnTimestamp,
			want:   []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil},
		},
		{
			name:  "datetime",
			field: &bigquery.FieldSchema{Name: "dt", Type: bigquery.DateTimeFieldType},
			values: []bigquery.Value{civil.DateTime{
				Date: day,
				Time: civil.Time{Hour: 3, Minute: 4, Second: 5},
			}},
			typ:  core.ColumnTimestamp,
			want: []any{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
		{
			name:   "numeric",
			field:  &bigquery.FieldSchema{Name: "n", Type: bigquery.NumericFieldType},
			values: []bigquery.Value{big.NewRat(3, 2), nil},
			typ:    core.ColumnFloat64,
			want:   []any{1.5, nil},
		},
		{
			name:   "integer",
			field:  &bigquery.FieldSchema{Name: "i", Type: bigquery.IntegerFieldType},
			values: []bigquery.Value{int64(7)},
			typ:    core.ColumnInt64,
			want:   []any{int64(7)},
		},
		{
			name:   "time stays text",
			field:  &bigquery.FieldSchema{Name: "t", Type: bigquery.TimeFieldType},
			values: []bigquery.Value{civil.Time{Hour: 13, Minute: 30}},
			typ:    core.ColumnString,
			want:   []any{"13:30:00"},
		},
		{
			name:   "repeated as json",
			field:  &bigquery.FieldSchema{Name: "tags", Type: bigquery.StringFieldType, Repeated: true},
			values: []bigquery.Value{[]bigquery.Value{"a", "b"}},
			typ:    core.ColumnString,
			want:   []any{`["a","b"]`},
		},
		{
			name:   "empty keeps declared type",
			field:  &bigquery.FieldSchema{Name: "d", Type: bigquery.DateFieldType},
			values: nil,
			typ:    core.ColumnTimestamp,
			want:   []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := columnFromField(tt.field, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.field.Name, col.Name)
			assert.Equal(t, tt.typ, col.Type())
			assert.Equal(t, tt.want, col.Values())
		})
	}
}

func TestColumnFromField_Mismatch(t *testing.T) {
	field := &bigquery.FieldSchema{Name: "i", Type: bigquery.IntegerFieldType}
	_, err := columnFromField(field, []bigquery.Value{"not a number"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column i")
}
