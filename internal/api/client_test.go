package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prrathnayake/stock-system-sub001/internal/auth"
	"github.com/prrathnayake/stock-system-sub001/internal/queue"
	"github.com/prrathnayake/stock-system-sub001/internal/store"
)

// deadURL refuses connections immediately — a transport failure without a
// real server.
const deadURL = "http://127.0.0.1:1"

// testEnv wires a full client stack (shared KV, credential store, refresher,
// queue) against a base URL with a controllable connectivity bit.
type testEnv struct {
	kv     store.KV
	creds  *auth.Store
	queue  *queue.Queue
	client *Client
	online atomic.Bool
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()

	return newTestEnvWithKV(t, baseURL, store.NewMemory())
}

// newTestEnvWithKV builds a stack over an existing KV backend, simulating a
// process restart when reusing a previous environment's store.
func newTestEnvWithKV(t *testing.T, baseURL string, kv store.KV) *testEnv {
	t.Helper()

	env := &testEnv{kv: kv}
	env.online.Store(true)

	logger := slog.Default()
	env.creds = auth.NewStore(kv, logger)
	env.queue = queue.New(kv, logger)

	refresher := auth.NewRefresher(baseURL, http.DefaultClient, env.creds, logger)
	env.client = NewClient(baseURL, http.DefaultClient, env.creds, refresher,
		env.queue, env.online.Load, logger)

	return env
}

func TestClient_AttachesBearerCredential(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "R1")

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer A1", gotAuth)
}

func TestClient_NoBearerAfterClear(t *testing.T) {
	var gotAuth atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "R1")
	env.creds.Clear()

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth.Load())
}

// newRefreshingServer serves GET /stock accepting only the given access token
// and POST /auth/refresh handing it out, counting refresh RPCs.
func newRefreshingServer(t *testing.T, goodAccess string, refreshDelay time.Duration, refreshCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshCalls.Add(1)
			time.Sleep(refreshDelay)
			_ = json.NewEncoder(w).Encode(map[string]string{"access": goodAccess})
		case "/stock":
			if r.Header.Get("Authorization") != "Bearer "+goodAccess {
				http.Error(w, "token expired", http.StatusUnauthorized)
				return
			}

			_, _ = w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient_HappyRefresh(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := newRefreshingServer(t, "A2", 0, &refreshCalls)
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "R1")

	resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `[]`, string(resp.Body))

	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, "A2", env.creds.Access())
	assert.Equal(t, "R1", env.creds.Refresh())
}

func TestClient_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := newRefreshingServer(t, "A2", 50*time.Millisecond, &refreshCalls)
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "R1")

	const callers = 4

	var wg sync.WaitGroup

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			resp, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load(), "concurrent 401s collapse onto one refresh RPC")
}

func TestClient_SecondUnauthorizedTerminates(t *testing.T) {
	var refreshCalls atomic.Int32

	// The server rejects every access token; refresh hands out a credential
	// that is still rejected on retry.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{"access": "A2"})

			return
		}

		http.Error(w, "token revoked", http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "R1")

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.ErrorIs(t, err, ErrUnauthorized)

	// A single retry is permitted per request; the second 401 terminates.
	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestClient_RefreshFailureClearsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			http.Error(w, "refresh revoked", http.StatusForbidden)
			return
		}

		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "R1")
	env.creds.SetUser(`{"id":1}`)

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)

	assert.Empty(t, env.creds.Access())
	assert.Empty(t, env.creds.Refresh())
	assert.Empty(t, env.creds.User())
}

func TestClient_NoRefreshTokenSkipsRefreshRPC(t *testing.T) {
	var refreshCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
		}

		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.creds.SetTokens("A1", "") // no refresh token

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)

	assert.Equal(t, int32(0), refreshCalls.Load(), "no refresh RPC without a refresh token")
	assert.Empty(t, env.creds.Access())
}

func TestClient_OfflineMutationQueued(t *testing.T) {
	env := newTestEnv(t, deadURL)
	env.online.Store(false)

	resp, err := env.client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/sales",
		Body:   []byte(`{"customer_id":7,"items":[]}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, resp.Queued)
	assert.JSONEq(t, `{"queued":true,"offline":true}`, string(resp.Body))

	assert.Equal(t, 1, env.queue.Size())
}

func TestClient_OfflineGetNotQueued(t *testing.T) {
	env := newTestEnv(t, deadURL)
	env.online.Store(false)

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.ErrorIs(t, err, ErrTransport)

	assert.Equal(t, 0, env.queue.Size())
}

func TestClient_OnlineTransportErrorPropagates(t *testing.T) {
	env := newTestEnv(t, deadURL)

	_, err := env.client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/sales",
		Body:   []byte(`{}`),
	})
	require.ErrorIs(t, err, ErrTransport)

	assert.Equal(t, 0, env.queue.Size())
}

func TestClient_DrainAfterReconnect(t *testing.T) {
	kv := store.NewMemory()

	// Offline: the sale is accepted into the queue.
	offline := newTestEnvWithKV(t, deadURL, kv)
	offline.online.Store(false)

	resp, err := offline.client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/sales",
		Body:   []byte(`{"customer_id":7}`),
	})
	require.NoError(t, err)
	require.True(t, resp.Queued)

	// Back online against a live server: the drain replays the sale.
	var replayed atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sales", r.URL.Path)
		replayed.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	onlineEnv := newTestEnvWithKV(t, srv.URL, kv)

	outcomes := onlineEnv.client.DrainQueue(context.Background())
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
	assert.Equal(t, int32(1), replayed.Load())
	assert.Equal(t, 0, onlineEnv.queue.Size())
}

func TestClient_ReplayCarriesStoredHeadersAndFreshBearer(t *testing.T) {
	kv := store.NewMemory()

	offline := newTestEnvWithKV(t, deadURL, kv)
	offline.online.Store(false)
	offline.creds.SetTokens("A1", "R1")

	header := http.Header{}
	header.Set("X-Trace", "t-7")

	resp, err := offline.client.Do(context.Background(), Request{
		Method: http.MethodPatch,
		Path:   "/products/9",
		Body:   []byte(`{"price_cents":1200}`),
		Header: header,
	})
	require.NoError(t, err)
	require.True(t, resp.Queued)

	// Restart with a rotated access token: the replay re-sends the stored
	// headers but the Authorization header reflects the current credential.
	var gotTrace, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Trace")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	restarted := newTestEnvWithKV(t, srv.URL, kv)
	restarted.creds.SetTokens("A2", "")

	outcomes := restarted.client.DrainQueue(context.Background())
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].OK)

	assert.Equal(t, "t-7", gotTrace)
	assert.Equal(t, "Bearer A2", gotAuth)
}

func TestClient_SuccessKicksBackgroundDrain(t *testing.T) {
	var mu sync.Mutex

	var paths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)
	env.queue.Enqueue(http.MethodPost, "/sales", []byte(`{}`), nil)

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/stock"})
	require.NoError(t, err)

	// The drain runs asynchronously after the 2xx.
	require.Eventually(t, func() bool {
		return env.queue.Size() == 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, paths, "POST /sales")
}

func TestClient_ServerErrorPropagatesVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "stock level would go negative", http.StatusConflict)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)

	_, err := env.client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/products/1/adjust", Body: []byte(`{"delta":-5}`)})
	require.ErrorIs(t, err, ErrConflict)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "stock level would go negative")
}
