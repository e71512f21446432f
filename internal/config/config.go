// Package config implements TOML configuration loading and platform path
// resolution for stockctl. Settings resolve through a four-layer override
// chain: built-in defaults, then the config file, then STOCKCTL_* environment
// variables, then CLI flags.
package config

import "time"

// Config is the top-level structure parsed from config.toml.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Watch   WatchConfig   `toml:"watch"`
}

// ServerConfig identifies the stock-system server.
type ServerConfig struct {
	URL          string `toml:"url"`
	Organization string `toml:"organization"`
	Timeout      string `toml:"timeout"` // duration string, e.g. "30s"
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// WatchConfig controls the watch daemon: connectivity poll cadence and the
// realtime event channel.
type WatchConfig struct {
	PollInterval string `toml:"poll_interval"`
	Events       bool   `toml:"events"`
}

// CLIOverrides holds values from CLI flags, the highest-priority layer.
// Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath string // --config
	ServerURL  string // --server
	DataDir    string // --data-dir
}

// EnvOverrides holds values read from the environment.
type EnvOverrides struct {
	ServerURL    string
	Organization string
	LogLevel     string
	DataDir      string
}

// Resolved is the effective configuration after all layers are applied and
// durations are parsed.
type Resolved struct {
	ServerURL    string
	Organization string
	Timeout      time.Duration
	LogLevel     string
	PollInterval time.Duration
	Events       bool
	DataDir      string
	ConfigPath   string
}

// Built-in defaults.
const (
	DefaultServerURL    = "http://localhost:8080/api"
	DefaultTimeout      = 30 * time.Second
	DefaultLogLevel     = "info"
	DefaultPollInterval = 15 * time.Second
)
