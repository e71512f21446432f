package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"
)

// ErrNotLoggedIn means no usable credentials exist: the refresh token is
// absent, or a refresh attempt failed and the credential set was cleared.
// The UI layer routes to login when it sees this.
var ErrNotLoggedIn = errors.New("auth: not logged in")

// refreshPath is the token refresh endpoint. It must not require a valid
// access token, so the refresher issues it on a bare HTTP client rather
// than the API wrapper — a 401 on refresh must never recurse into refresh.
const refreshPath = "/auth/refresh"

// Refresher coordinates access token refresh. However many requests hit a 401
// concurrently, at most one refresh RPC is in flight; every caller in that
// window observes the same outcome. A caller arriving after the in-flight
// attempt settles starts a new one.
type Refresher struct {
	baseURL    string
	httpClient *http.Client
	creds      *Store
	logger     *slog.Logger

	group singleflight.Group
}

// NewRefresher creates a refresh coordinator for the given server.
func NewRefresher(baseURL string, httpClient *http.Client, creds *Store, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Refresher{
		baseURL:    baseURL,
		httpClient: httpClient,
		creds:      creds,
		logger:     logger,
	}
}

// FreshAccess returns a newly refreshed access token. Concurrent callers are
// collapsed onto a single refresh RPC via singleflight; the slot is released
// when the attempt settles. On any failure the credential set is cleared
// before the error propagates.
func (r *Refresher) FreshAccess(ctx context.Context) (string, error) {
	v, err, shared := r.group.Do("refresh", func() (any, error) {
		return r.refresh(ctx)
	})
	if err != nil {
		return "", err
	}

	if shared {
		r.logger.Debug("joined in-flight token refresh")
	}

	return v.(string), nil
}

// refresh performs one refresh RPC. Exactly one invocation runs at a time.
func (r *Refresher) refresh(ctx context.Context) (string, error) {
	refreshToken := r.creds.Refresh()
	if refreshToken == "" {
		r.logger.Warn("token refresh requested without a refresh token")
		r.creds.Clear()

		return "", ErrNotLoggedIn
	}

	r.logger.Debug("refreshing access token")

	access, err := r.doRefreshRPC(ctx, refreshToken)
	if err != nil {
		r.logger.Warn("token refresh failed, clearing credentials", "error", err)
		r.creds.Clear()

		return "", fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}

	// Preserve the existing refresh token: the refresh response carries only
	// a new access token.
	r.creds.SetTokens(access, "")

	r.logger.Debug("access token refreshed")

	return access, nil
}

// doRefreshRPC exchanges the refresh token for a new access token.
func (r *Refresher) doRefreshRPC(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", fmt.Errorf("auth: encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("auth: creating refresh request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("auth: reading refresh response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("auth: refresh rejected: HTTP %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("auth: decoding refresh response: %w", err)
	}

	if parsed.Access == "" {
		return "", errors.New("auth: refresh response missing access token")
	}

	return parsed.Access, nil
}
