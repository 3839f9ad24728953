package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronicle-labs/chronicle/internal/actions"
	"github.com/chronicle-labs/chronicle/internal/plugin"
	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/internal/tui"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive browser",
		Long: `Open the interactive terminal browser on the store.

The browser shows query results in a table, the selected record in a
detail tree, and offers actions (delete, copy, save files) on records
and values. Starlark plugins in the plugins directory contribute
additional actions.`,
		Example: `  # Browse the default store
  chronicle browse

  # Browse a specific database
  chronicle browse --uri sqlite://lab.db

  # Re-run the query whenever the database file changes
  chronicle browse --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunBrowse(cmd)
		},
	}

	cmd.Flags().Bool("watch", false, "Refresh results when the database file changes")

	return cmd
}

// RunBrowse opens the browser. The root command calls it directly when
// invoked without a subcommand on a terminal.
func RunBrowse(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := actions.DefaultRegistry()
	loader := plugin.NewLoader(cmdCtx.Cfg.PluginsDir, cmdCtx.Logger)
	loaded, err := loader.Load(registry)
	if err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	cmdCtx.Logger.Debug("plugins loaded", "count", loaded)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts := tui.Options{
		Store:    cmdCtx.Store,
		Registry: registry,
		Logger:   cmdCtx.Logger,
		SaveDir:  cmdCtx.Cfg.SaveDir,
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if watch || cmdCtx.Cfg.Watch {
		watcher, err := store.NewWatcher(cmdCtx.Cfg.URI)
		if err != nil {
			return fmt.Errorf("failed to watch store: %w", err)
		}
		defer func() { _ = watcher.Close() }()
		go watcher.Run(ctx)
		opts.Refresh = watcher.Changes()
	}

	return tui.Run(ctx, opts)
}
