package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prrathnayake/stock-system-sub001/internal/auth"
	"github.com/prrathnayake/stock-system-sub001/internal/queue"
)

const userAgent = "stockctl/0.1"

// drainTimeout bounds the background drain kicked after a successful request.
const drainTimeout = 2 * time.Minute

// syntheticBody is the acknowledgement body returned for a mutation accepted
// into the offline queue. Callers that only inspect status and body cannot
// tell it apart from a server reply.
const syntheticBody = `{"queued":true,"offline":true}`

// TokenRefresher obtains a fresh access token, collapsing concurrent callers
// onto one refresh RPC. Implemented by auth.Refresher.
type TokenRefresher interface {
	FreshAccess(ctx context.Context) (string, error)
}

// Request describes one API call through the wrapper.
type Request struct {
	Method string
	Path   string // server-relative, e.g. "/products/9"
	Body   []byte // JSON payload, nil for bodyless requests
	Header http.Header
}

// Response is the wrapper's result. Queued marks a synthetic acknowledgement:
// the mutation was enrolled in the offline queue and no server reply exists.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Queued     bool
}

// Client is the authenticated HTTP client wrapper. All API traffic flows
// through Do; the queue drain replays through Replay, which performs the same
// enrichment and refresh handling but never re-enqueues.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      *auth.Store
	refresher  TokenRefresher
	pending    *queue.Queue
	online     func() bool
	logger     *slog.Logger
}

// NewClient creates a client wrapper. online reports host connectivity; nil
// means no connectivity signal is available and the host is treated as
// online (mutations are never queued, drains never trigger automatically).
func NewClient(
	baseURL string,
	httpClient *http.Client,
	creds *auth.Store,
	refresher TokenRefresher,
	pending *queue.Queue,
	online func() bool,
	logger *slog.Logger,
) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	if online == nil {
		online = func() bool { return true }
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		creds:      creds,
		refresher:  refresher,
		pending:    pending,
		online:     online,
		logger:     logger,
	}
}

// Do executes a request through the full wrapper pipeline: credential
// enrichment, 401 refresh-and-retry (once), offline queueing for mutations,
// and an opportunistic queue drain after success.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, req, false, false)
}

// Replay re-sends a queued mutation. Identical to Do except it never
// re-enqueues on transport failure and never kicks a drain — the queue's
// drain loop owns both decisions. Implements queue.Sender.
func (c *Client) Replay(ctx context.Context, method, path string, body []byte, headers map[string]string) error {
	header := make(http.Header, len(headers))
	for name, value := range headers {
		header.Set(name, value)
	}

	_, err := c.do(ctx, Request{Method: method, Path: path, Body: body, Header: header}, false, true)

	return err
}

// Online reports host connectivity. Implements queue.Sender.
func (c *Client) Online() bool {
	return c.online()
}

// Queue exposes the offline mutation queue for status and manual drains.
func (c *Client) Queue() *queue.Queue {
	return c.pending
}

// DrainQueue replays pending offline mutations through this client.
func (c *Client) DrainQueue(ctx context.Context) []queue.Outcome {
	if c.pending == nil {
		return nil
	}

	return c.pending.Drain(ctx, c)
}

// do runs one send attempt plus at most one refresh-and-retry cycle.
func (c *Client) do(ctx context.Context, req Request, retried, replay bool) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.handleTransportError(ctx, req, replay, err)
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		return nil, fmt.Errorf("api: %s %s: reading response: %w", req.Method, req.Path, readErr)
	}

	// 2xx — success. Kick a background drain while connectivity is healthy.
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode)

		if !replay {
			c.kickDrain()
		}

		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		return c.refreshAndRetry(ctx, req, replay, body)
	}

	sentinel := classifyStatus(resp.StatusCode)

	c.logger.Debug("request failed",
		"method", req.Method, "path", req.Path, "status", resp.StatusCode)

	return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Err: sentinel}
}

// buildRequest constructs the enriched http.Request: caller headers first,
// then the bearer credential (overwriting any stored Authorization snapshot
// so replays always carry the current access token).
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}

	httpReq.Header.Set("User-Agent", userAgent)

	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if access := c.creds.Access(); access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	return httpReq, nil
}

// handleTransportError implements the offline-queue path: a mutating request
// failing at the transport layer while the host is offline becomes a queued
// entry plus a synthetic 202. Everything else surfaces as a transport error.
func (c *Client) handleTransportError(ctx context.Context, req Request, replay bool, cause error) (*Response, error) {
	if !replay && c.pending != nil && isMutating(req.Method) && queueablePath(req.Path) && !c.online() {
		entry := c.pending.Enqueue(req.Method, req.Path, req.Body, req.Header)

		c.logger.Info("mutation accepted offline",
			"id", entry.ID, "method", req.Method, "path", req.Path)

		return &Response{
			StatusCode: http.StatusAccepted,
			Body:       []byte(syntheticBody),
			Queued:     true,
		}, nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("api: %s %s: %w: %w", req.Method, req.Path, ErrTransport, ctx.Err())
	}

	return nil, fmt.Errorf("api: %s %s: %w: %w", req.Method, req.Path, ErrTransport, cause)
}

// refreshAndRetry consults the refresh coordinator and re-issues the request
// exactly once. A refresh failure propagates the original 401 — the
// coordinator has already cleared the credential store.
func (c *Client) refreshAndRetry(ctx context.Context, req Request, replay bool, body401 []byte) (*Response, error) {
	c.logger.Debug("401 received, refreshing access token",
		"method", req.Method, "path", req.Path)

	if _, err := c.refresher.FreshAccess(ctx); err != nil {
		c.logger.Warn("token refresh failed",
			"method", req.Method, "path", req.Path, "error", err)

		return nil, &APIError{
			StatusCode: http.StatusUnauthorized,
			Message:    string(body401),
			Err:        fmt.Errorf("%w: %w", ErrUnauthorized, err),
		}
	}

	// The retry reads the refreshed credential from the store in
	// buildRequest, so it never observes a stale access token.
	return c.do(ctx, req, true, replay)
}

// kickDrain asynchronously replays queued mutations. Errors are absorbed;
// per-entry outcomes are logged by the queue itself.
func (c *Client) kickDrain() {
	if c.pending == nil || c.pending.Size() == 0 || !c.online() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		c.pending.Drain(ctx, c)
	}()
}

// queueablePath excludes auth endpoints from the offline queue: replaying a
// login later is meaningless and would persist raw credentials to disk.
func queueablePath(path string) bool {
	return !strings.HasPrefix(path, "/auth/")
}

// isMutating reports whether the method is queueable when offline.
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("api: decoding GET %s response: %w", path, err)
	}

	return nil
}

// sendJSON issues a mutating request with a JSON-encoded payload. The caller
// must check Response.Queued before interpreting the body as a server reply.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) (*Response, error) {
	var body []byte

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s payload: %w", method, path, err)
		}

		body = raw
	}

	return c.Do(ctx, Request{Method: method, Path: path, Body: body})
}
