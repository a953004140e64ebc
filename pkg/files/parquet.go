package files

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/parquet-go/parquet-go"
)

const parquetBatchSize = 1024

// decodeParquet reads a flat parquet file. Nested columns are rejected.
func decodeParquet(r io.ReaderAt, size int64) (*core.Dataframe, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := f.Schema().Fields()
	values := make([][]any, len(fields))
	for _, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("nested parquet column %q is not supported", field.Name())
		}
	}

	buf := make([]parquet.Row, parquetBatchSize)
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, fields, buf, values); err != nil {
			return nil, err
		}
	}

	cols := make([]core.Column, len(fields))
	for i, field := range fields {
		if !allNil(values[i]) {
			cols[i] = core.NewColumn(field.Name(), values[i])
			continue
		}
		col, err := core.NewTypedColumn(field.Name(), parquetColumnType(field), values[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return core.NewDataframe(cols...)
}

func readRowGroup(rg parquet.RowGroup, fields []parquet.Field, buf []parquet.Row, values [][]any) error {
	rows := rg.Rows()
	defer func() { _ = rows.Close() }()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for i := range fields {
				values[i] = append(values[i], nil)
			}
			for _, v := range row {
				col := v.Column()
				if col < 0 || col >= len(fields) || v.IsNull() {
					continue
				}
				values[col][len(values[col])-1] = parquetValue(fields[col], v)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
}

func parquetValue(field parquet.Field, v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		if unit, ok := timestampUnit(field); ok {
			return time.Unix(0, v.Int64()*int64(unit)).UTC()
		}
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// timestampUnit returns the duration of one tick for timestamp columns.
func timestampUnit(field parquet.Field) (time.Duration, bool) {
	lt := field.Type().LogicalType()
	if lt == nil || lt.Timestamp == nil {
		return 0, false
	}
	switch {
	case lt.Timestamp.Unit.Millis != nil:
		return time.Millisecond, true
	case lt.Timestamp.Unit.Nanos != nil:
		return time.Nanosecond, true
	default:
		return time.Microsecond, true
	}
}

func parquetColumnType(field parquet.Field) core.ColumnType {
	if _, ok := timestampUnit(field); ok {
		return core.ColumnTimestamp
	}
	switch field.Type().Kind() {
	case parquet.Boolean:
		return core.ColumnBool
	case parquet.Int32, parquet.Int64:
		return core.ColumnInt64
	case parquet.Float, parquet.Double:
		return core.ColumnFloat64
	default:
		return core.ColumnString
	}
}

func allNil(values []any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}

func parquetNode(t core.ColumnType) parquet.Node {
	switch t {
	case core.ColumnInt64:
		return parquet.Leaf(parquet.Int64Type)
	case core.ColumnFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case core.ColumnBool:
		return parquet.Leaf(parquet.BooleanType)
	case core.ColumnTimestamp:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

// encodeParquet writes the dataframe as a single row group of optional columns.
// Parquet groups order their fields by name, so columns come back sorted.
func encodeParquet(w io.Writer, df *core.Dataframe) error {
	columns := df.Columns()
	group := parquet.Group{}
	for _, c := range columns {
		group[c.Name] = parquet.Optional(parquetNode(c.Type()))
	}
	schema := parquet.NewSchema("dataframe", group)

	order := make([]int, df.Width())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return columns[order[a]].Name < columns[order[b]].Name })

	rows := make([]parquet.Row, df.Len())
	for r := range rows {
		row := make(parquet.Row, len(order))
		for leaf, idx := range order {
			c := columns[idx]
			row[leaf] = toParquetValue(c.Type(), c.Value(r), leaf)
		}
		rows[r] = row
	}

	pw := parquet.NewWriter(w, schema)
	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func toParquetValue(t core.ColumnType, v any, leaf int) parquet.Value {
	if v == nil {
		return parquet.NullValue().Level(0, 0, leaf)
	}
	var pv parquet.Value
	switch t {
	case core.ColumnInt64:
		pv = parquet.Int64Value(v.(int64))
	case core.ColumnFloat64:
		switch x := v.(type) {
		case int64:
			pv = parquet.DoubleValue(float64(x))
		default:
			pv = parquet.DoubleValue(x.(float64))
		}
	case core.ColumnBool:
		pv = parquet.BooleanValue(v.(bool))
	case core.ColumnTimestamp:
		pv = parquet.Int64Value(v.(time.Time).UnixMicro())
	default:
		pv = parquet.ByteArrayValue([]byte(fmt.Sprint(v)))
	}
	return pv.Level(0, 1, leaf)
}
