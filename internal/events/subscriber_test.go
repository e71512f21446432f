package events

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prrathnayake/stock-system-sub001/internal/auth"
	"github.com/prrathnayake/stock-system-sub001/internal/store"
)

// recordingSink captures connectivity transitions from the subscriber.
type recordingSink struct {
	mu     sync.Mutex
	states []bool
}

func (s *recordingSink) SetOnline(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = append(s.states, online)

	return online
}

func (s *recordingSink) snapshot() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]bool, len(s.states))
	copy(out, s.states)

	return out
}

func TestSubscriber_ReceivesEventsAndSignalsConnectivity(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)

		ctx := r.Context()
		_ = wsjson.Write(ctx, conn, Event{Type: "stock.updated", Payload: []byte(`{"product_id":9}`)})
		_ = wsjson.Write(ctx, conn, Event{Type: "workorder.moved", Payload: []byte(`{"id":3,"stage":"repair"}`)})

		conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	creds := auth.NewStore(store.NewMemory(), slog.Default())
	creds.SetTokens("A1", "R1")

	var mu sync.Mutex

	var received []Event

	sink := &recordingSink{}

	sub := NewSubscriber(srv.URL, srv.Client(), creds, func(e Event) {
		mu.Lock()
		defer mu.Unlock()

		received = append(received, e)
	}, sink, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = sub.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	assert.Equal(t, "stock.updated", received[0].Type)
	assert.Equal(t, "workorder.moved", received[1].Type)
	mu.Unlock()

	assert.Equal(t, "Bearer A1", gotAuth)

	// Connect signaled online; the dropped session signaled offline.
	states := sink.snapshot()
	require.NotEmpty(t, states)
	assert.True(t, states[0])
	assert.Contains(t, states, false)
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://stock.local:8080", wsURL("http://stock.local:8080"))
	assert.Equal(t, "wss://stock.example.com", wsURL("https://stock.example.com"))
}
