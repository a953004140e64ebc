package files

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/leapstack-labs/dfbridge/pkg/core"
)

// Encode writes the dataframe in the given file format.
// CSV has a header row and no index; JSON is an array of records; NDJSON is one record per line.
func Encode(w io.Writer, df *core.Dataframe, fileType core.FileType) error {
	switch fileType {
	case core.TypeCSV:
		return encodeCSV(w, df)
	case core.TypeJSON:
		return encodeRecords(w, df, false)
	case core.TypeNDJSON:
		return encodeRecords(w, df, true)
	case core.TypeParquet:
		return encodeParquet(w, df)
	default:
		return fmt.Errorf("unsupported file type %q", fileType)
	}
}

func encodeCSV(w io.Writer, df *core.Dataframe) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(df.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, df.Width())
	for r := 0; r < df.Len(); r++ {
		for i, v := range df.Row(r) {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// encodeRecords writes records with keys in column order.
func encodeRecords(w io.Writer, df *core.Dataframe, lines bool) error {
	bw := bufio.NewWriter(w)
	columns := df.Columns()
	keys := make([][]byte, len(columns))
	for i, c := range columns {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	if !lines {
		_ = bw.WriteByte('[')
	}
	for r := 0; r < df.Len(); r++ {
		if !lines && r > 0 {
			_ = bw.WriteByte(',')
		}
		_ = bw.WriteByte('{')
		for i, c := range columns {
			if i > 0 {
				_ = bw.WriteByte(',')
			}
			v, err := json.Marshal(c.Value(r))
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", c.Name, err)
			}
			_, _ = bw.Write(keys[i])
			_ = bw.WriteByte(':')
			_, _ = bw.Write(v)
		}
		_ = bw.WriteByte('}')
		if lines {
			_ = bw.WriteByte('\n')
		}
	}
	if !lines {
		_, _ = bw.WriteString("]\n")
	}
	return bw.Flush()
}
