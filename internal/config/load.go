package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolve loads the effective configuration: defaults, then the config file
// (silently skipped when absent), then environment variables, then CLI
// flags. The server URL is normalised without a trailing slash.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	resolved := &Resolved{
		ServerURL:    DefaultServerURL,
		Timeout:      DefaultTimeout,
		LogLevel:     DefaultLogLevel,
		PollInterval: DefaultPollInterval,
		Events:       true,
		DataDir:      DefaultDataDir(),
	}

	path := cli.ConfigPath
	if path == "" {
		path = DefaultConfigPath()
	}

	resolved.ConfigPath = path

	if path != "" {
		if err := applyFile(resolved, path, cli.ConfigPath != ""); err != nil {
			return nil, err
		}
	}

	applyEnv(resolved, env)
	applyCLI(resolved, cli)

	resolved.ServerURL = strings.TrimRight(resolved.ServerURL, "/")

	if err := validate(resolved); err != nil {
		return nil, err
	}

	return resolved, nil
}

// applyFile merges the config file layer. A missing file is an error only
// when the user named it explicitly.
func applyFile(resolved *Resolved, path string, explicit bool) error {
	var cfg Config

	meta, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return fmt.Errorf("config: %s does not exist", path)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config: %s contains unknown keys: %v", path, undecoded)
	}

	if cfg.Server.URL != "" {
		resolved.ServerURL = cfg.Server.URL
	}

	if cfg.Server.Organization != "" {
		resolved.Organization = cfg.Server.Organization
	}

	if cfg.Server.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Server.Timeout)
		if err != nil {
			return fmt.Errorf("config: invalid server.timeout %q: %w", cfg.Server.Timeout, err)
		}

		resolved.Timeout = timeout
	}

	if cfg.Logging.Level != "" {
		resolved.LogLevel = cfg.Logging.Level
	}

	if cfg.Watch.PollInterval != "" {
		interval, err := time.ParseDuration(cfg.Watch.PollInterval)
		if err != nil {
			return fmt.Errorf("config: invalid watch.poll_interval %q: %w", cfg.Watch.PollInterval, err)
		}

		resolved.PollInterval = interval
	}

	// A bool field cannot distinguish "false" from "unset"; consult the
	// decode metadata.
	if meta.IsDefined("watch", "events") {
		resolved.Events = cfg.Watch.Events
	}

	return nil
}

func applyEnv(resolved *Resolved, env EnvOverrides) {
	if env.ServerURL != "" {
		resolved.ServerURL = env.ServerURL
	}

	if env.Organization != "" {
		resolved.Organization = env.Organization
	}

	if env.LogLevel != "" {
		resolved.LogLevel = env.LogLevel
	}

	if env.DataDir != "" {
		resolved.DataDir = env.DataDir
	}
}

func applyCLI(resolved *Resolved, cli CLIOverrides) {
	if cli.ServerURL != "" {
		resolved.ServerURL = cli.ServerURL
	}

	if cli.DataDir != "" {
		resolved.DataDir = cli.DataDir
	}
}

// validLogLevels lists accepted logging.level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validate(resolved *Resolved) error {
	if resolved.ServerURL == "" {
		return errors.New("config: server.url is required")
	}

	if !strings.HasPrefix(resolved.ServerURL, "http://") && !strings.HasPrefix(resolved.ServerURL, "https://") {
		return fmt.Errorf("config: server.url %q must start with http:// or https://", resolved.ServerURL)
	}

	if !validLogLevels[resolved.LogLevel] {
		return fmt.Errorf("config: invalid logging.level %q", resolved.LogLevel)
	}

	if resolved.Timeout <= 0 {
		return errors.New("config: server.timeout must be positive")
	}

	if resolved.PollInterval <= 0 {
		return errors.New("config: watch.poll_interval must be positive")
	}

	return nil
}

// EnsureDataDir creates the data directory when it does not exist.
func EnsureDataDir(dataDir string) error {
	if dataDir == "" {
		return errors.New("config: no data directory available")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("config: creating data directory %s: %w", dataDir, err)
	}

	return nil
}
