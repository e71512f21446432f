package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/prrathnayake/stock-system-sub001/internal/config"
	"github.com/prrathnayake/stock-system-sub001/internal/events"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the connectivity daemon",
		Long: `Run in the foreground, probing server connectivity on an interval and
subscribing to the realtime event channel. Queued mutations drain
automatically whenever the server becomes reachable again.`,
		RunE: runWatch,
	}
}

func runWatch(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := shutdownContext(context.Background(), logger)

	// Drain whenever connectivity is regained, and once at startup in case
	// the last session left entries behind.
	a.watcher.OnOnline(func() {
		go a.client.DrainQueue(ctx)
	})

	if a.watcher.Check(ctx) && a.pending.Size() > 0 {
		go a.client.DrainQueue(ctx)
	}

	logger.Info("watch daemon started",
		slog.String("server", a.cfg.ServerURL),
		slog.Duration("poll_interval", a.cfg.PollInterval),
		slog.Bool("events", a.cfg.Events),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.watcher.Run(ctx)

		return nil
	})

	if a.cfg.Events {
		// The websocket session is long-lived; the request-scoped client
		// timeout would sever it, so the subscriber gets its own client.
		wsClient := &http.Client{}
		sub := events.NewSubscriber(a.cfg.ServerURL, wsClient, a.creds, logEvent(logger), a.watcher, logger)

		g.Go(func() error {
			return sub.Run(ctx)
		})
	}

	if a.cfg.ConfigPath != "" {
		g.Go(func() error {
			return watchConfigFile(ctx, a.cfg, logger)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// logEvent returns an event handler that records server notifications. The
// daemon has no UI to refresh; the log is the observable surface.
func logEvent(logger *slog.Logger) events.Handler {
	return func(ev events.Event) {
		logger.Info("server event",
			slog.String("type", ev.Type),
			slog.String("payload", string(ev.Payload)),
		)
	}
}

// watchConfigFile re-resolves configuration when the config file changes and
// applies the log level in place. Changes to the server URL or poll interval
// need a restart; those are logged so the operator knows.
func watchConfigFile(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching config: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors typically replace the file,
	// which would drop a direct watch.
	if err := watcher.Add(filepath.Dir(cfg.ConfigPath)); err != nil {
		return fmt.Errorf("watching config: %w", err)
	}

	target := filepath.Clean(cfg.ConfigPath)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			applyConfigReload(cfg, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watch error", slog.String("error", err.Error()))
		}
	}
}

// applyConfigReload re-runs the resolver and applies what can change at
// runtime.
func applyConfigReload(old *config.Resolved, logger *slog.Logger) {
	reloaded, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
		ConfigPath: flagConfigPath,
		ServerURL:  flagServerURL,
		DataDir:    flagDataDir,
	})
	if err != nil {
		logger.Warn("config file changed but did not resolve, keeping current settings",
			slog.String("error", err.Error()))

		return
	}

	if reloaded.LogLevel != old.LogLevel {
		logLevel.Set(levelFor(reloaded, flagVerbose, flagQuiet))
		logger.Info("log level updated", slog.String("level", reloaded.LogLevel))
		old.LogLevel = reloaded.LogLevel
	}

	if reloaded.ServerURL != old.ServerURL || reloaded.PollInterval != old.PollInterval {
		logger.Warn("server or poll settings changed, restart to apply")
	}
}
