package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prrathnayake/stock-system-sub001/internal/api"
	"github.com/prrathnayake/stock-system-sub001/internal/auth"
	"github.com/prrathnayake/stock-system-sub001/internal/config"
	"github.com/prrathnayake/stock-system-sub001/internal/netwatch"
	"github.com/prrathnayake/stock-system-sub001/internal/queue"
	"github.com/prrathnayake/stock-system-sub001/internal/store"
)

// app bundles the assembled client stack for one CLI invocation: the durable
// local store, credentials, the offline queue, the connectivity watcher, and
// the API client wrapper on top of them.
type app struct {
	cfg        *config.Resolved
	logger     *slog.Logger
	httpClient *http.Client

	kv      store.KV
	creds   *auth.Store
	pending *queue.Queue
	watcher *netwatch.Watcher
	client  *api.Client
}

// newApp wires the full stack from the resolved configuration. The sqlite
// store is preferred; if it cannot be opened the stack degrades to an
// in-memory store so reads and online writes keep working, at the cost of
// queue and session durability.
func newApp(logger *slog.Logger) (*app, error) {
	cfg := resolvedCfg
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	kv := openStore(cfg, logger)

	httpClient := &http.Client{Timeout: cfg.Timeout}

	creds := auth.NewStore(kv, logger)
	refresher := auth.NewRefresher(cfg.ServerURL, httpClient, creds, logger)
	pending := queue.New(kv, logger)
	watcher := netwatch.New(cfg.ServerURL, httpClient, cfg.PollInterval, logger)
	client := api.NewClient(cfg.ServerURL, httpClient, creds, refresher, pending, watcher.Online, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
		kv:         kv,
		creds:      creds,
		pending:    pending,
		watcher:    watcher,
		client:     client,
	}, nil
}

// openStore opens the sqlite-backed store under the data directory, falling
// back to a volatile in-memory store when the database is unavailable.
func openStore(cfg *config.Resolved, logger *slog.Logger) store.KV {
	if err := config.EnsureDataDir(cfg.DataDir); err != nil {
		logger.Warn("data directory unavailable, using in-memory store",
			slog.String("dir", cfg.DataDir), slog.String("error", err.Error()))

		return store.NewMemory()
	}

	kv, err := store.Open(config.DatabasePath(cfg.DataDir), logger)
	if err != nil {
		logger.Warn("local database unavailable, using in-memory store",
			slog.String("path", config.DatabasePath(cfg.DataDir)), slog.String("error", err.Error()))

		return store.NewMemory()
	}

	return kv
}

// Close releases the local store.
func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("closing local store", slog.String("error", err.Error()))
	}
}
