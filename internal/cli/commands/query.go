package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format  string
	Input   string
	Limit   int
	All     bool
	Sort    string
	Desc    bool
	ObjIDs  []string
	TypeIDs []string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [FILTER]",
		Short: "Query records in the store",
		Long: `Query records in the store with a JSON filter document.

The filter matches record fields and state paths. Reserved keys: "type"
restricts the type, "obj_id" restricts to specific objects, "version"
selects versions (-1 means the latest non-deleted version of each
object), and "sort" orders results. A bare argument that is not a JSON
document is shorthand for a type restriction.

When invoked without arguments on a terminal, enters interactive REPL
mode.`,
		Example: `  # Latest version of every plant
  chronicle query garden.plant

  # Explicit filter document
  chronicle query '{"type": "garden.plant", "state.colour": "red"}'

  # Every stored version, newest first
  chronicle query --all --sort mtime --desc

  # Output as JSON
  chronicle query garden.plant --format json

  # Interactive mode
  chronicle query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read the filter document from a file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum rows to return")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Show every stored version, not just the current one")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort by a record field or state path")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "Sort descending")
	cmd.Flags().StringArrayVar(&opts.ObjIDs, "obj-id", nil, "Restrict to specific object ids (repeatable)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.Format == "" {
		opts.Format = cmdCtx.Cfg.OutputFormat
	}
	if opts.Limit == 0 {
		opts.Limit = cmdCtx.Cfg.Limit
	}

	// Determine the filter source
	var filterText string
	switch {
	case len(args) > 0:
		filterText = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		filterText = string(content)
	case !isTerminal(os.Stdin):
		// Read from stdin (piped input)
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		filterText = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cmdCtx, opts)
	}

	query, err := buildQuery(filterText, opts)
	if err != nil {
		return err
	}

	return executeAndRender(cmd.Context(), cmd.OutOrStdout(), cmdCtx.Store, query, opts.Format, opts.Limit)
}

// buildQuery combines the filter text with flag-level restrictions into
// one query document.
func buildQuery(filterText string, opts *QueryOptions) (core.Query, error) {
	filterText = strings.TrimSpace(filterText)

	var query core.Query
	switch {
	case filterText == "":
		query = core.Query{}
	case strings.HasPrefix(filterText, "{"):
		parsed, err := core.ParseQuery(filterText)
		if err != nil {
			return nil, err
		}
		query = parsed
	default:
		// Bare word shorthand for a type restriction
		query = core.Query{core.QueryKeyType: filterText}
	}

	if !opts.All {
		if _, ok := query[core.QueryKeyVersion]; !ok {
			query[core.QueryKeyVersion] = core.VersionLatest
		}
	}
	if len(opts.ObjIDs) > 0 {
		ids := make([]any, len(opts.ObjIDs))
		for i, id := range opts.ObjIDs {
			ids[i] = id
		}
		query[core.QueryKeyObjID] = ids
	}
	if opts.Sort != "" {
		query[core.QueryKeySort] = core.SortSpec(opts.Sort, !opts.Desc)
	}

	return query, nil
}

func executeAndRender(ctx context.Context, w io.Writer, st store.Store, query core.Query, format string, limit int) error {
	it, err := st.FindRecords(ctx, query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = it.Close() }()

	var records []core.Record
	for {
		if limit > 0 && len(records) >= limit {
			break
		}
		rec, ok := it.Next()
		if !ok {
			break
		}
		records = append(records, rec)
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	return renderRecords(w, records, format)
}
