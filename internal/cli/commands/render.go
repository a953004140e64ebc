package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/dfbridge/internal/config"
	"github.com/leapstack-labs/dfbridge/pkg/core"
	"github.com/leapstack-labs/dfbridge/pkg/files"
	"golang.org/x/term"
)

// resolveFormat turns "auto" into table for terminals and csv otherwise.
func resolveFormat(w io.Writer, format string) string {
	if format != "" && format != config.OutputAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return config.OutputTable
	}
	return config.OutputCSV
}

func renderDataframe(w io.Writer, df *core.Dataframe, format string) error {
	switch resolveFormat(w, format) {
	case config.OutputJSON:
		return files.Encode(w, df, core.TypeJSON)
	case config.OutputCSV:
		return files.Encode(w, df, core.TypeCSV)
	case config.OutputMarkdown, "md":
		return renderTable(w, df, true)
	case config.OutputTable:
		return renderTable(w, df, false)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, df *core.Dataframe, markdown bool) error {
	if df.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	cols := df.ColumnNames()
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for i := 0; i < df.Len(); i++ {
		values := df.Row(i)
		row := make(table.Row, len(values))
		for j, v := range values {
			row[j] = formatValue(v)
		}
		t.AppendRow(row)
	}

	if markdown {
		t.RenderMarkdown()
		return nil
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", df.Len())
	return nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}
