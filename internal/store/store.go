// Package store provides a durable string-keyed, string-valued store used for
// credential persistence and the offline mutation queue. The primary backend
// is an embedded SQLite database; when the database cannot be opened the
// caller falls back to the in-memory implementation, which satisfies the same
// interface but does not survive restarts.
package store

// KV is the durable storage contract. All operations are synchronous.
// Keys are namespaced by the caller (e.g. "auth.access", "queue.pending").
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set writes the value for key, replacing any existing value.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Apply performs all sets and removes atomically. Consumers rely on this
	// for multi-key invariants (a credential clear removes access, refresh
	// and profile together or not at all).
	Apply(sets map[string]string, removes []string) error

	// Close releases the backing resources.
	Close() error
}
