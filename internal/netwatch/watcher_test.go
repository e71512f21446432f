package netwatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProbe fails or succeeds according to its fail bit.
type flakyProbe struct {
	fail atomic.Bool
}

func (p *flakyProbe) probe(context.Context) error {
	if p.fail.Load() {
		return errors.New("network unreachable")
	}

	return nil
}

func TestWatcher_ProbeAgainstHealthEndpoint(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		require.Equal(t, "/health", r.URL.Path)
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := New(srv.URL, srv.Client(), time.Minute, slog.Default())

	assert.True(t, w.Check(context.Background()))
	assert.Equal(t, int32(1), hits.Load())

	// A fresh answer is served from cache.
	assert.True(t, w.Online())
	assert.Equal(t, int32(1), hits.Load())
}

func TestWatcher_UnreachableServerIsOffline(t *testing.T) {
	w := New("http://127.0.0.1:1", &http.Client{Timeout: time.Second}, time.Minute, slog.Default())

	assert.False(t, w.Check(context.Background()))
	assert.False(t, w.Online())
}

func TestWatcher_TransitionToOnlineFiresCallbacks(t *testing.T) {
	p := &flakyProbe{}
	w := NewWithProbe(p.probe, time.Minute, slog.Default())

	var fired atomic.Int32

	w.OnOnline(func() { fired.Add(1) })

	// First observation online: no transition yet.
	w.Check(context.Background())
	assert.Equal(t, int32(0), fired.Load())

	// Drop and recover twice: consecutive transitions fire consecutively.
	for range 2 {
		p.fail.Store(true)
		w.Check(context.Background())

		p.fail.Store(false)
		w.Check(context.Background())
	}

	assert.Equal(t, int32(2), fired.Load())
}

func TestWatcher_SetOnlineFeedsExternalSignal(t *testing.T) {
	p := &flakyProbe{}
	p.fail.Store(true)

	w := NewWithProbe(p.probe, time.Minute, slog.Default())
	w.Check(context.Background())

	var fired atomic.Int32

	w.OnOnline(func() { fired.Add(1) })

	// The event channel reconnecting signals online without a probe.
	assert.True(t, w.SetOnline(true))
	assert.Equal(t, int32(1), fired.Load())
	assert.True(t, w.Online())
}
