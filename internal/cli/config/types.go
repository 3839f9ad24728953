// Package config provides configuration management for the Chronicle CLI.
//
// Configuration is layered: defaults, then an optional chronicle.yaml,
// then CHRONICLE_* environment variables, then command-line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	URI          string `koanf:"uri"`
	PluginsDir   string `koanf:"plugins_dir"`
	SaveDir      string `koanf:"save_dir"`
	Limit        int    `koanf:"limit"`
	OutputFormat string `koanf:"format"`
	Verbose      bool   `koanf:"verbose"`
	Watch        bool   `koanf:"watch"`
}

// Default configuration values.
const (
	DefaultURI        = "sqlite://chronicle.db"
	DefaultPluginsDir = "plugins"
	DefaultSaveDir    = "."
	DefaultLimit      = 500
	DefaultOutput     = "table"
)
