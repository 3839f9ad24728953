package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the object types in the store",
		Long: `List the distinct object types stored, with their human-readable
names where a type helper is registered.`,
		Example: `  chronicle types
  chronicle types --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			format := opts.Format
			if format == "" {
				format = cmdCtx.Cfg.OutputFormat
			}
			return renderTypes(cmd.Context(), cmd.OutOrStdout(), cmdCtx.Store, format)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")

	return cmd
}

// typeRow is one listed type.
type typeRow struct {
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
}

func renderTypes(ctx context.Context, w io.Writer, st store.Store, format string) error {
	typeIDs, err := st.FindDistinct(ctx, core.FieldTypeID)
	if err != nil {
		return fmt.Errorf("failed to list types: %w", err)
	}

	rows := make([]typeRow, 0, len(typeIDs))
	for _, id := range typeIDs {
		name, err := st.ObjType(id)
		if err != nil || name == "" {
			name = id
		}
		rows = append(rows, typeRow{TypeID: id, Name: name})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		_, _ = fmt.Fprintln(w, "type_id,name")
		for _, row := range rows {
			_, _ = fmt.Fprintf(w, "%s,%s\n", escapeCSV(row.TypeID), escapeCSV(row.Name))
		}
		return nil
	case "md", "markdown":
		_, _ = fmt.Fprintln(w, "| type_id | name |")
		_, _ = fmt.Fprintln(w, "| --- | --- |")
		for _, row := range rows {
			_, _ = fmt.Fprintf(w, "| %s | %s |\n", row.TypeID, row.Name)
		}
		return nil
	default:
		if len(rows) == 0 {
			_, _ = fmt.Fprintln(w, "(no types)")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"type_id", "name"})
		for _, row := range rows {
			t.AppendRow(table.Row{row.TypeID, row.Name})
		}
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d types)\n", len(rows))
		return nil
	}
}
