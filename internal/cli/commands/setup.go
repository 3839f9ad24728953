// Package commands implements the chronicle subcommands.
package commands

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chronicle-labs/chronicle/internal/cli/config"
	"github.com/chronicle-labs/chronicle/internal/store"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Store  *store.SQLStore
}

// NewCommandContext creates a CommandContext with an open store handle.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	st, err := store.Open(cfg.URI)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = st.Close()
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Store:  st,
	}, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without opening
// the store. Useful for commands that don't need database access.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    getConfig(),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	limit := config.DefaultLimit
	if v := os.Getenv("CHRONICLE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	return &config.Config{
		URI:          getEnvOrDefault("CHRONICLE_URI", config.DefaultURI),
		PluginsDir:   getEnvOrDefault("CHRONICLE_PLUGINS_DIR", config.DefaultPluginsDir),
		SaveDir:      getEnvOrDefault("CHRONICLE_SAVE_DIR", config.DefaultSaveDir),
		Limit:        limit,
		OutputFormat: getEnvOrDefault("CHRONICLE_FORMAT", config.DefaultOutput),
		Verbose:      os.Getenv("CHRONICLE_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
