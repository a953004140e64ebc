package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ColumnType is the logical type of a dataframe column.
type ColumnType string

// Supported column types.
const (
	ColumnInt64     ColumnType = "int64"
	ColumnFloat64   ColumnType = "float64"
	ColumnString    ColumnType = "string"
	ColumnBool      ColumnType = "bool"
	ColumnTimestamp ColumnType = "timestamp"
)

// alloc backs every dataframe. The Go allocator leaves reclamation to the
// garbage collector, so callers are not required to Release.
var alloc memory.Allocator = memory.NewGoAllocator()

// ArrowType returns the Arrow data type that stores t.
func (t ColumnType) ArrowType() arrow.DataType {
	switch t {
	case ColumnInt64:
		return arrow.PrimitiveTypes.Int64
	case ColumnFloat64:
		return arrow.PrimitiveTypes.Float64
	case ColumnBool:
		return arrow.FixedWidthTypes.Boolean
	case ColumnTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// ColumnTypeOf maps an Arrow data type back to a column type.
func ColumnTypeOf(dt arrow.DataType) (ColumnType, error) {
	switch dt.ID() {
	case arrow.INT64:
		return ColumnInt64, nil
	case arrow.FLOAT64:
		return ColumnFloat64, nil
	case arrow.BOOL:
		return ColumnBool, nil
	case arrow.TIMESTAMP:
		return ColumnTimestamp, nil
	case arrow.STRING:
		return ColumnString, nil
	default:
		return "", fmt.Errorf("unsupported arrow type %s", dt)
	}
}

// Column is a named, typed Arrow array. Null slots are nil values.
type Column struct {
	Name string
	arr  arrow.Array
}

// NewColumn builds a column from raw values. The type is inferred from the
// values and every value is converted to it, so a mix of integers and
// strings becomes a string column.
func NewColumn(name string, values []any) Column {
	normalized := make([]any, len(values))
	for i, v := range values {
		normalized[i] = NormalizeValue(v)
	}
	col, err := NewTypedColumn(name, InferColumnType(normalized), normalized)
	if err != nil {
		// The inferred type accepts every normalized value.
		panic(fmt.Sprintf("core: column %q: %v", name, err))
	}
	return col
}

// NewTypedColumn builds a column of type typ, converting each value to it.
func NewTypedColumn(name string, typ ColumnType, values []any) (Column, error) {
	b := array.NewBuilder(alloc, typ.ArrowType())
	defer b.Release()
	b.Reserve(len(values))

	for i, raw := range values {
		v, err := ConvertValue(typ, NormalizeValue(raw))
		if err != nil {
			return Column{}, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		if v == nil {
			b.AppendNull()
			continue
		}
		switch bb := b.(type) {
		case *array.Int64Builder:
			bb.Append(v.(int64))
		case *array.Float64Builder:
			bb.Append(v.(float64))
		case *array.BooleanBuilder:
			bb.Append(v.(bool))
		case *array.StringBuilder:
			bb.Append(v.(string))
		case *array.TimestampBuilder:
			ts, err := arrow.TimestampFromTime(v.(time.Time), arrow.Microsecond)
			if err != nil {
				return Column{}, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			bb.Append(ts)
		}
	}
	return Column{Name: name, arr: b.NewArray()}, nil
}

// Type returns the column's logical type.
func (c Column) Type() ColumnType {
	if c.arr == nil {
		return ColumnString
	}
	t, err := ColumnTypeOf(c.arr.DataType())
	if err != nil {
		return ColumnString
	}
	return t
}

// Len returns the number of values.
func (c Column) Len() int {
	if c.arr == nil {
		return 0
	}
	return c.arr.Len()
}

// Array returns the backing Arrow array.
func (c Column) Array() arrow.Array { return c.arr }

// Value returns the value at row i, or nil for a null slot.
func (c Column) Value(i int) any {
	return arrayValue(c.arr, i)
}

// Values returns every value of the column.
func (c Column) Values() []any {
	out := make([]any, c.Len())
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

func arrayValue(arr arrow.Array, i int) any {
	if arr == nil || arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	default:
		return arr.ValueStr(i)
	}
}

// Dataframe is an in-memory, column-oriented table backed by an Arrow record.
// All columns share the same length.
type Dataframe struct {
	rec arrow.Record
}

// NewDataframe creates a dataframe from columns of equal length.
func NewDataframe(columns ...Column) (*Dataframe, error) {
	seen := make(map[string]bool, len(columns))
	fields := make([]arrow.Field, len(columns))
	arrays := make([]arrow.Array, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Len() != columns[0].Len() {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, c.Len(), columns[0].Len())
		}
		arr := c.arr
		if arr == nil {
			empty, err := NewTypedColumn(c.Name, ColumnString, nil)
			if err != nil {
				return nil, err
			}
			arr = empty.arr
		}
		fields[i] = arrow.Field{Name: c.Name, Type: arr.DataType(), Nullable: true}
		arrays[i] = arr
	}
	rows := 0
	if len(columns) > 0 {
		rows = columns[0].Len()
	}
	return &Dataframe{rec: array.NewRecord(arrow.NewSchema(fields, nil), arrays, int64(rows))}, nil
}

// NewDataframeFromRecord wraps an Arrow record. Every field must map to a column type.
func NewDataframeFromRecord(rec arrow.Record) (*Dataframe, error) {
	for _, f := range rec.Schema().Fields() {
		if _, err := ColumnTypeOf(f.Type); err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
	}
	rec.Retain()
	return &Dataframe{rec: rec}, nil
}

// Record returns the backing Arrow record.
func (d *Dataframe) Record() arrow.Record { return d.rec }

// Release drops the reference held on the backing record.
func (d *Dataframe) Release() {
	if d != nil && d.rec != nil {
		d.rec.Release()
	}
}

// Len returns the number of rows.
func (d *Dataframe) Len() int {
	if d == nil || d.rec == nil {
		return 0
	}
	return int(d.rec.NumRows())
}

// Width returns the number of columns.
func (d *Dataframe) Width() int {
	if d == nil || d.rec == nil {
		return 0
	}
	return int(d.rec.NumCols())
}

// Columns returns the columns in order.
func (d *Dataframe) Columns() []Column {
	cols := make([]Column, d.Width())
	for i := range cols {
		cols[i] = Column{Name: d.rec.ColumnName(i), arr: d.rec.Column(i)}
	}
	return cols
}

// ColumnNames returns column names in order.
func (d *Dataframe) ColumnNames() []string {
	names := make([]string, d.Width())
	for i := range names {
		names[i] = d.rec.ColumnName(i)
	}
	return names
}

// Column returns the named column.
func (d *Dataframe) Column(name string) (Column, bool) {
	for i := 0; i < d.Width(); i++ {
		if d.rec.ColumnName(i) == name {
			return Column{Name: name, arr: d.rec.Column(i)}, true
		}
	}
	return Column{}, false
}

// Row returns the values of row i in column order.
func (d *Dataframe) Row(i int) []any {
	row := make([]any, d.Width())
	for j := range row {
		row[j] = arrayValue(d.rec.Column(j), i)
	}
	return row
}

// Records returns all rows as a map per row, keyed by column name.
func (d *Dataframe) Records() []map[string]any {
	names := d.ColumnNames()
	out := make([]map[string]any, d.Len())
	for i := range out {
		rec := make(map[string]any, len(names))
		for j, name := range names {
			rec[name] = arrayValue(d.rec.Column(j), i)
		}
		out[i] = rec
	}
	return out
}

// Rename returns a copy of the dataframe with every column name passed through fn.
// Arrays are shared with the receiver.
func (d *Dataframe) Rename(fn func(string) string) *Dataframe {
	fields := make([]arrow.Field, d.Width())
	for i, f := range d.rec.Schema().Fields() {
		f.Name = fn(f.Name)
		fields[i] = f
	}
	return &Dataframe{rec: array.NewRecord(arrow.NewSchema(fields, nil), d.rec.Columns(), d.rec.NumRows())}
}

// LowerColumnNames returns a copy with lower-cased column names.
func (d *Dataframe) LowerColumnNames() *Dataframe {
	return d.Rename(strings.ToLower)
}

// Slice returns rows [start, end) as a new dataframe sharing the underlying buffers.
func (d *Dataframe) Slice(start, end int) *Dataframe {
	n := d.Len()
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return &Dataframe{rec: d.rec.NewSlice(int64(start), int64(end))}
}

// Chunks splits the dataframe into consecutive slices of at most size rows.
// An empty dataframe yields a single empty chunk so that table creation still happens.
func (d *Dataframe) Chunks(size int) []*Dataframe {
	n := d.Len()
	if size <= 0 || n <= size {
		return []*Dataframe{d}
	}
	chunks := make([]*Dataframe, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		chunks = append(chunks, d.Slice(start, start+size))
	}
	return chunks
}

// InferColumnType returns the narrowest type that can hold every non-nil value.
// Mixed integer and float columns are float64; any other mix is string.
func InferColumnType(values []any) ColumnType {
	var result ColumnType
	for _, v := range values {
		var t ColumnType
		switch v.(type) {
		case nil:
			continue
		case int64:
			t = ColumnInt64
		case float64:
			t = ColumnFloat64
		case bool:
			t = ColumnBool
		case time.Time:
			t = ColumnTimestamp
		default:
			t = ColumnString
		}
		switch {
		case result == "":
			result = t
		case result == t:
		case (result == ColumnInt64 && t == ColumnFloat64) || (result == ColumnFloat64 && t == ColumnInt64):
			result = ColumnFloat64
		default:
			return ColumnString
		}
	}
	if result == "" {
		return ColumnString
	}
	return result
}

// timestampLayouts are tried in order when a string is converted to a timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ConvertValue converts a normalized value to the Go representation of typ.
// Nil stays nil.
func ConvertValue(typ ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case ColumnString:
		switch x := v.(type) {
		case string:
			return x, nil
		case time.Time:
			return x.Format(time.RFC3339Nano), nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		default:
			return fmt.Sprint(x), nil
		}
	case ColumnInt64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
				return int64(x), nil
			}
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n, nil
			}
		}
	case ColumnFloat64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		}
	case ColumnBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	case ColumnTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			for _, layout := range timestampLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(x)); err == nil {
					return t, nil
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown column type %q", typ)
	}
	return nil, fmt.Errorf("cannot convert %T %v to %s", v, v, typ)
}

// NormalizeValue converts driver and decoder values to the dataframe's value set:
// int64, float64, string, bool, time.Time or nil.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil, int64, float64, string, bool, time.Time:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x) //nolint:gosec // values beyond int64 are not produced by supported backends
	case uint:
		return int64(x) //nolint:gosec // see above
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
