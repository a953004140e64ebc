package files

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Decode reads a whole file of the given type into a dataframe.
func Decode(r io.Reader, fileType core.FileType, opts DecodeOptions) (*core.Dataframe, error) {
	switch fileType {
	case core.TypeCSV:
		return decodeCSV(r, opts.delimiter())
	case core.TypeJSON:
		return decodeJSON(r)
	case core.TypeNDJSON:
		return decodeNDJSON(r)
	case core.TypeParquet:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return decodeParquet(bytes.NewReader(data), int64(len(data)))
	default:
		return nil, fmt.Errorf("unsupported file type %q", fileType)
	}
}

// DecodeOptions tunes decoding.
type DecodeOptions struct {
	// Delimiter is the CSV field separator; zero means comma.
	Delimiter rune
}

func (o DecodeOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func decodeCSV(r io.Reader, delimiter rune) (*core.Dataframe, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return core.NewDataframe()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	raw := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		for i := range header {
			raw[i] = append(raw[i], rec[i])
		}
	}

	cols := make([]core.Column, len(header))
	for i, name := range header {
		col, err := parseCSVColumn(name, raw[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return core.NewDataframe(cols...)
}

// parseCSVColumn picks the narrowest type every non-empty cell parses as: int64, float64, bool, then string.
// Empty cells are nulls; a column of only empty cells is string.
func parseCSVColumn(name string, cells []string) (core.Column, error) {
	values := make([]any, len(cells))
	if allEmpty(cells) {
		return core.NewTypedColumn(name, core.ColumnString, values)
	}
	parsers := []struct {
		typ   core.ColumnType
		parse func(string) (any, bool)
	}{
		{core.ColumnInt64, func(s string) (any, bool) {
			v, err := strconv.ParseInt(s, 10, 64)
			return v, err == nil
		}},
		{core.ColumnFloat64, func(s string) (any, bool) {
			v, err := strconv.ParseFloat(s, 64)
			return v, err == nil
		}},
		{core.ColumnBool, func(s string) (any, bool) {
			switch strings.ToLower(s) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
			return nil, false
		}},
	}

	for _, p := range parsers {
		ok := true
		for i, cell := range cells {
			if cell == "" {
				values[i] = nil
				continue
			}
			v, parsed := p.parse(cell)
			if !parsed {
				ok = false
				break
			}
			values[i] = v
		}
		if ok {
			return core.NewTypedColumn(name, p.typ, values)
		}
	}

	for i, cell := range cells {
		if cell == "" {
			values[i] = nil
		} else {
			values[i] = cell
		}
	}
	return core.NewTypedColumn(name, core.ColumnString, values)
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// recordBuilder assembles columns from records, keeping first-seen key order.
type recordBuilder struct {
	names  []string
	index  map[string]int
	values [][]any
	rows   int
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{index: make(map[string]int)}
}

func (b *recordBuilder) add(keys []string, vals []any) {
	for i, k := range keys {
		col, ok := b.index[k]
		if !ok {
			col = len(b.names)
			b.index[k] = col
			b.names = append(b.names, k)
			b.values = append(b.values, make([]any, b.rows))
		}
		b.values[col] = append(b.values[col], vals[i])
	}
	b.rows++
	for col := range b.values {
		if len(b.values[col]) < b.rows {
			b.values[col] = append(b.values[col], nil)
		}
	}
}

func (b *recordBuilder) dataframe() (*core.Dataframe, error) {
	cols := make([]core.Column, len(b.names))
	for i, name := range b.names {
		cols[i] = core.NewColumn(name, b.values[i])
	}
	return core.NewDataframe(cols...)
}

// readObject decodes one JSON object, preserving key order.
func readObject(dec *json.Decoder) ([]string, []any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	var vals []any
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		v, err := jsonValue(raw)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		vals = append(vals, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, vals, nil
}

// jsonValue maps decoded JSON into dataframe values; nested values are kept as JSON text.
func jsonValue(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func decodeJSON(r io.Reader) (*core.Dataframe, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return core.NewDataframe()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("failed to read json: expected an array of records")
	}

	b := newRecordBuilder()
	for dec.More() {
		keys, vals, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to read json record %d: %w", b.rows, err)
		}
		b.add(keys, vals)
	}
	return b.dataframe()
}

func decodeNDJSON(r io.Reader) (*core.Dataframe, error) {
	b := newRecordBuilder()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		keys, vals, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("failed to read ndjson line %d: %w", line, err)
		}
		b.add(keys, vals)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ndjson: %w", err)
	}
	return b.dataframe()
}
