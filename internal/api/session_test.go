package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LoginStoresCredentialSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)

		var body struct {
			Organization string `json:"organization"`
			Email        string `json:"email"`
			Password     string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "acme", body.Organization)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access":  "A1",
			"refresh": "R1",
			"user":    map[string]any{"id": 7, "name": "Tina", "email": body.Email},
		})
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)

	user, err := env.client.Login(context.Background(), "acme", "tina@acme.test", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Tina", user.Name)

	assert.Equal(t, "A1", env.creds.Access())
	assert.Equal(t, "R1", env.creds.Refresh())

	cached := env.client.CurrentUser()
	require.NotNil(t, cached)
	assert.Equal(t, "Tina", cached.Name)
}

func TestClient_LoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad password", http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL)

	_, err := env.client.Login(context.Background(), "acme", "tina@acme.test", "wrong")
	require.ErrorIs(t, err, ErrBadCredentials)
	assert.Empty(t, env.creds.Access())
}

func TestClient_LoginOfflineNotQueued(t *testing.T) {
	env := newTestEnv(t, deadURL)
	env.online.Store(false)

	_, err := env.client.Login(context.Background(), "acme", "tina@acme.test", "hunter2")
	require.ErrorIs(t, err, ErrTransport)

	// Credentials must never land in the offline queue.
	assert.Equal(t, 0, env.queue.Size())
}

func TestClient_LogoutClears(t *testing.T) {
	env := newTestEnv(t, deadURL)
	env.creds.SetTokens("A1", "R1")
	env.creds.SetUser(`{"id":7}`)

	env.client.Logout()

	assert.Empty(t, env.creds.Access())
	assert.Empty(t, env.creds.Refresh())
	assert.Nil(t, env.client.CurrentUser())
}
