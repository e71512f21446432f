// Package netwatch observes host connectivity to the stock-system server.
// The watcher probes a lightweight health endpoint; any HTTP response counts
// as online, a transport failure counts as offline. Transitions to online
// fire registered callbacks (the CLI uses them to schedule queue drains).
// External signals, such as the realtime event channel connecting or
// dropping, can feed the same state via SetOnline.
package netwatch

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// healthPath is the unauthenticated probe endpoint.
const healthPath = "/health"

// probeTimeout bounds a single connectivity probe.
const probeTimeout = 5 * time.Second

// Watcher tracks the online/offline bit. The bit is observed, never
// persisted. Online() serves a cached answer and re-probes lazily once the
// answer is older than the probe interval, so one-shot CLI commands pay for
// at most one probe and only after a transport failure makes it relevant.
type Watcher struct {
	probe    func(ctx context.Context) error
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	online   bool
	observed bool // at least one probe or signal has settled the bit
	checked  time.Time
	onOnline []func()
}

// New creates a watcher probing the server's health endpoint.
func New(baseURL string, httpClient *http.Client, interval time.Duration, logger *slog.Logger) *Watcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	probe := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL+healthPath, nil)
		if err != nil {
			return err
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}

		// Reachability is all that matters; even an error status proves
		// the transport works.
		resp.Body.Close()

		return nil
	}

	return NewWithProbe(probe, interval, logger)
}

// NewWithProbe creates a watcher with a custom probe. Tests inject failures
// here.
func NewWithProbe(probe func(ctx context.Context) error, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{probe: probe, interval: interval, logger: logger}
}

// OnOnline registers a callback fired on each offline→online transition.
// Callbacks run on the observing goroutine and must not block for long;
// drain scheduling wraps its work in a goroutine.
func (w *Watcher) OnOnline(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onOnline = append(w.onOnline, fn)
}

// Online reports the connectivity bit, lazily re-probing when the cached
// answer is stale.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	fresh := w.observed && time.Since(w.checked) < w.interval
	online := w.online
	w.mu.Unlock()

	if fresh {
		return online
	}

	return w.Check(context.Background())
}

// Check performs an immediate probe, updates the bit, and fires transition
// callbacks. Returns the new online state.
func (w *Watcher) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := w.probe(ctx)

	return w.SetOnline(err == nil)
}

// SetOnline records an externally observed connectivity state, firing
// callbacks on an offline→online transition. Returns the state for
// convenience.
func (w *Watcher) SetOnline(online bool) bool {
	w.mu.Lock()

	wasObserved := w.observed
	wasOnline := w.online
	w.online = online
	w.observed = true
	w.checked = time.Now()

	var callbacks []func()
	if online && wasObserved && !wasOnline {
		callbacks = append(callbacks, w.onOnline...)
	}

	w.mu.Unlock()

	if wasObserved && wasOnline != online {
		w.logger.Info("connectivity changed", "online", online)
	}

	for _, fn := range callbacks {
		fn()
	}

	return online
}

// Run probes periodically until ctx is canceled. Consecutive transitions to
// online yield consecutive callback invocations; there is no throttling.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
