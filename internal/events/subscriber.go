// Package events subscribes to the server's realtime event channel. The
// server pushes stock updates, sale confirmations and work-order moves over
// a websocket; the watch daemon renders them and uses the channel's
// connect/disconnect transitions as a connectivity signal.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sethvargo/go-retry"

	"github.com/prrathnayake/stock-system-sub001/internal/auth"
)

// eventsPath is the websocket upgrade endpoint.
const eventsPath = "/events"

// Reconnect backoff bounds.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Event is one realtime notification from the server.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler receives decoded events.
type Handler func(Event)

// ConnectivitySink receives connect/disconnect transitions of the event
// channel. Implemented by netwatch.Watcher.
type ConnectivitySink interface {
	SetOnline(online bool) bool
}

// Subscriber maintains a websocket session against the event channel,
// reconnecting with capped Fibonacci backoff when it drops.
type Subscriber struct {
	baseURL    string
	httpClient *http.Client
	creds      *auth.Store
	handler    Handler
	sink       ConnectivitySink
	logger     *slog.Logger
}

// NewSubscriber creates an event subscriber. sink may be nil when the caller
// does not track connectivity.
func NewSubscriber(
	baseURL string,
	httpClient *http.Client,
	creds *auth.Store,
	handler Handler,
	sink ConnectivitySink,
	logger *slog.Logger,
) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}

	return &Subscriber{
		baseURL:    baseURL,
		httpClient: httpClient,
		creds:      creds,
		handler:    handler,
		sink:       sink,
		logger:     logger,
	}
}

// Run maintains the subscription until ctx is canceled. Each dropped session
// starts a fresh backoff cycle, so a long-lived connection followed by an
// outage reconnects promptly.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		if err := s.connectAndListen(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			s.logger.Warn("event channel lost", "error", err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// connectAndListen dials with backoff, then reads events until the session
// ends.
func (s *Subscriber) connectAndListen(ctx context.Context) error {
	conn, err := s.dialWithBackoff(ctx)
	if err != nil {
		return err
	}

	defer conn.Close(websocket.StatusNormalClosure, "")

	s.logger.Info("event channel connected")
	s.signal(true)

	defer s.signal(false)

	for {
		var event Event
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			return fmt.Errorf("events: read: %w", err)
		}

		s.logger.Debug("event received", "type", event.Type)

		if s.handler != nil {
			s.handler(event)
		}
	}
}

// dialWithBackoff retries the websocket dial with capped Fibonacci backoff
// until it succeeds or ctx is canceled.
func (s *Subscriber) dialWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	backoff := retry.WithCappedDuration(maxBackoff, retry.NewFibonacci(initialBackoff))

	var conn *websocket.Conn

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := s.dial(ctx)
		if err != nil {
			s.logger.Debug("event channel dial failed, backing off", "error", err)
			return retry.RetryableError(err)
		}

		conn = c

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}

	return conn, nil
}

// dial performs a single websocket handshake, carrying the current access
// token when one exists.
func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if access := s.creds.Access(); access != "" {
		header.Set("Authorization", "Bearer "+access)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL(s.baseURL)+eventsPath, &websocket.DialOptions{
		HTTPClient: s.httpClient,
		HTTPHeader: header,
	})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (s *Subscriber) signal(online bool) {
	if s.sink != nil {
		s.sink.SetOnline(online)
	}
}

// wsURL rewrites an http(s) base URL to its ws(s) equivalent.
func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
