package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// stateCellWidth bounds the rendered state summary in table output.
const stateCellWidth = 48

var recordColumns = []string{"obj_id", "type", "version", "created", "modified", "state"}

func renderRecords(w io.Writer, records []core.Record, format string) error {
	switch format {
	case "json":
		return renderRecordsJSON(w, records)
	case "csv":
		return renderRecordsCSV(w, records)
	case "md", "markdown":
		return renderRecordsMarkdown(w, records)
	default:
		return renderRecordsTable(w, records)
	}
}

func recordCells(rec core.Record, maxState int) []string {
	return []string{
		rec.ObjID,
		rec.TypeID,
		fmt.Sprintf("%d", rec.Version),
		rec.CTime.Format(time.RFC3339),
		rec.MTime.Format(time.RFC3339),
		core.FormatValue(rec.State, maxState),
	}
}

func renderRecordsTable(w io.Writer, records []core.Record) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(recordColumns))
	for i, col := range recordColumns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, rec := range records {
		cells := recordCells(rec, stateCellWidth)
		row := make(table.Row, len(cells))
		for i, cell := range cells {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(records))
	return nil
}

func renderRecordsJSON(w io.Writer, records []core.Record) error {
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		out[i] = rec.AsMap()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderRecordsCSV(w io.Writer, records []core.Record) error {
	_, _ = fmt.Fprintln(w, strings.Join(recordColumns, ","))
	for _, rec := range records {
		cells := recordCells(rec, 0)
		for i, cell := range cells {
			cells[i] = escapeCSV(cell)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, ","))
	}
	return nil
}

func renderRecordsMarkdown(w io.Writer, records []core.Record) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(recordColumns, " | "))
	seps := make([]string, len(recordColumns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, rec := range records {
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(recordCells(rec, stateCellWidth), " | "))
	}
	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
