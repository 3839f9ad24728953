package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "chronicle_history")
	}
	return filepath.Join(home, ".chronicle", "query_history")
}

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, opts *QueryOptions) error {
	ctx := cmd.Context()
	st := cmdCtx.Store

	historyFile := historyFilePath()
	_ = os.MkdirAll(filepath.Dir(historyFile), 0o750)

	completer := newTypeCompleter(ctx, st)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chronicle> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chronicle Query REPL (store: %s)\n", st.URI())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if handleDotCommand(ctx, cmd, st, line, opts) {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Anything else is a filter document or a bare type name
		query, err := buildQuery(line, opts)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := executeAndRender(ctx, cmd.OutOrStdout(), st, query, opts.Format, opts.Limit); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func handleDotCommand(ctx context.Context, cmd *cobra.Command, st store.Store, line string, opts *QueryOptions) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())
		return true

	case ".types":
		if err := renderTypes(ctx, cmd.OutOrStdout(), st, opts.Format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".limit":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Limit: %d\n", opts.Limit)
			return true
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .limit <n>")
			return true
		}
		opts.Limit = n
		return true

	case ".all":
		opts.All = togglerValue(parts, opts.All)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Showing all versions: %v\n", opts.All)
		return true

	case ".current":
		opts.All = !togglerValue(parts, !opts.All)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Showing current versions only: %v\n", !opts.All)
		return true

	case ".sort":
		if len(parts) < 2 {
			opts.Sort, opts.Desc = "", false
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Sort cleared")
			return true
		}
		opts.Sort = parts[1]
		opts.Desc = len(parts) > 2 && strings.EqualFold(parts[2], "desc")
		return true

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Format: %s\n", opts.Format)
			return true
		}
		opts.Format = parts[1]
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

func togglerValue(parts []string, current bool) bool {
	if len(parts) < 2 {
		return !current
	}
	return strings.EqualFold(parts[1], "on") || strings.EqualFold(parts[1], "true")
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .types             List the object types in the store
  .limit [n]         Show or set the row limit
  .all [on|off]      Toggle showing every stored version
  .current [on|off]  Toggle showing only current versions
  .sort [path desc]  Set or clear the sort key
  .format <fmt>      Set the output format (table|json|csv|md)
  .clear             Clear the screen
  .quit / .exit      Exit the REPL

Queries:
  - A JSON document is a filter: {"type": "garden.plant", "state.colour": "red"}
  - A bare word restricts the type: garden.plant
  - Tab completion works for type names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTypeCompleter creates a readline completer for type names.
func newTypeCompleter(ctx context.Context, st store.Store) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	typeIDs, err := st.FindDistinct(ctx, core.FieldTypeID)
	if err == nil {
		for _, id := range typeIDs {
			items = append(items, readline.PcItem(id))
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".types"),
		readline.PcItem(".limit"),
		readline.PcItem(".all"),
		readline.PcItem(".current"),
		readline.PcItem(".sort"),
		readline.PcItem(".format"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
