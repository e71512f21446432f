// Package auth owns the credential set (access token, refresh token, user
// profile) and the refresh coordinator. Credentials are persisted through the
// durable KV store and consumed opaquely — nothing in this package interprets
// token contents or the user profile blob.
package auth

import (
	"log/slog"

	"github.com/prrathnayake/stock-system-sub001/internal/store"
)

// Namespaced KV keys for the credential set.
const (
	keyAccess  = "auth.access"
	keyRefresh = "auth.refresh"
	keyUser    = "auth.user"
)

// Store is the single source of truth for the credential set. Storage
// failures degrade silently: reads return empty strings and writes are
// dropped with a warning, so callers fall back to unauthenticated requests
// that the server will reject.
type Store struct {
	kv     store.KV
	logger *slog.Logger
}

// NewStore creates a credential store over the given KV backend.
func NewStore(kv store.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{kv: kv, logger: logger}
}

// Access returns the current access token, or "" when absent.
func (s *Store) Access() string {
	return s.read(keyAccess)
}

// Refresh returns the current refresh token, or "" when absent.
func (s *Store) Refresh() string {
	return s.read(keyRefresh)
}

// User returns the raw user profile blob, or "" when absent.
func (s *Store) User() string {
	return s.read(keyUser)
}

// SetTokens writes the access token unconditionally. The refresh token is
// written only when non-empty — a refresh RPC returns a new access token
// without a refresh token, and the prior refresh token must survive.
// Both writes land in one transaction so readers never observe a mix of
// old access with new refresh.
func (s *Store) SetTokens(access, refresh string) {
	sets := map[string]string{keyAccess: access}
	if refresh != "" {
		sets[keyRefresh] = refresh
	}

	if err := s.kv.Apply(sets, nil); err != nil {
		s.logger.Warn("dropping credential write, storage unavailable", "error", err)
	}
}

// SetUser writes the raw user profile blob.
func (s *Store) SetUser(raw string) {
	if err := s.kv.Set(keyUser, raw); err != nil {
		s.logger.Warn("dropping profile write, storage unavailable", "error", err)
	}
}

// Clear atomically removes the access token, refresh token and user profile.
func (s *Store) Clear() {
	if err := s.kv.Apply(nil, []string{keyAccess, keyRefresh, keyUser}); err != nil {
		s.logger.Warn("credential clear failed, storage unavailable", "error", err)
	}
}

func (s *Store) read(key string) string {
	value, _, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("credential read failed, storage unavailable",
			"key", key, "error", err)
		return ""
	}

	return value
}
