package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prrathnayake/stock-system-sub001/internal/config"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name     string
		cfgLevel string
		verbose  bool
		quiet    bool
		want     slog.Level
	}{
		{"default info", "info", false, false, slog.LevelInfo},
		{"config debug", "debug", false, false, slog.LevelDebug},
		{"config warn", "warn", false, false, slog.LevelWarn},
		{"config error", "error", false, false, slog.LevelError},
		{"verbose overrides config", "error", true, false, slog.LevelDebug},
		{"quiet overrides config", "debug", false, true, slog.LevelError},
		{"quiet beats verbose", "info", true, true, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Resolved{LogLevel: tt.cfgLevel}
			assert.Equal(t, tt.want, levelFor(cfg, tt.verbose, tt.quiet))
		})
	}
}

func TestLevelFor_NilConfig(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, levelFor(nil, false, false))
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"login", "logout", "whoami", "status", "queue",
		"products", "lookup", "stock", "sales", "invoices", "workorders", "watch",
	} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true

				break
			}
		}

		assert.True(t, found, "missing subcommand %s", name)
	}
}
