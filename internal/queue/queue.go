// Package queue persists mutations attempted while offline and replays them
// in insertion order once connectivity returns. Entries live as a single
// serialised JSON sequence under one KV key; an in-memory mirror is lazily
// hydrated from durable storage and flushed back on every change.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/prrathnayake/stock-system-sub001/internal/store"
)

// pendingKey is the KV key holding the serialised entry sequence.
const pendingKey = "queue.pending"

// Entry is one queued mutation. Fields are never mutated after insertion.
type Entry struct {
	ID        string            `json:"id"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Body      json.RawMessage   `json:"body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt int64             `json:"created_at"` // epoch millis
}

// Outcome reports the drain result for one entry.
type Outcome struct {
	ID  string
	OK  bool
	Err error
}

// Sender replays a queued mutation against the live server. The API client
// wrapper implements it with a variant that never re-enqueues. Online reports
// the host connectivity bit the drain loop consults after a failed send.
type Sender interface {
	Replay(ctx context.Context, method, path string, body []byte, headers map[string]string) error
	Online() bool
}

// Queue is the durable offline mutation queue. Enqueue is safe to interleave
// with a running drain; new entries join the tail and are picked up by the
// current or next drain pass.
type Queue struct {
	kv     store.KV
	logger *slog.Logger

	mu       sync.Mutex
	entries  []Entry
	hydrated bool

	draining atomic.Bool
}

// New creates a Queue over the given KV backend.
func New(kv store.KV, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{kv: kv, logger: logger}
}

// Enqueue appends a mutation record and persists the sequence. The returned
// entry carries the generated ID and creation timestamp.
func (q *Queue) Enqueue(method, path string, body []byte, headers http.Header) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Method:    method,
		Path:      path,
		Body:      body,
		Headers:   CanonicalHeaders(headers),
		CreatedAt: time.Now().UnixMilli(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.hydrateLocked()
	q.entries = append(q.entries, entry)
	q.persistLocked()

	q.logger.Info("queued offline mutation",
		"id", entry.ID, "method", method, "path", path, "pending", len(q.entries))

	return entry
}

// Size returns the number of pending entries.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.hydrateLocked()

	return len(q.entries)
}

// Entries returns a snapshot of the pending entries in FIFO order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.hydrateLocked()

	snapshot := make([]Entry, len(q.entries))
	copy(snapshot, q.entries)

	return snapshot
}

// Drain replays pending entries from the head in FIFO order. A successful
// replay removes the entry. A failed replay while the host is still online
// also removes the entry — it is not retried — and the failure is recorded
// in the outcomes. A failure while offline stops the drain, leaving the
// entry at the head for a later pass.
//
// Only one drain runs at a time; a call overlapping a running drain is a
// no-op returning nil outcomes.
func (q *Queue) Drain(ctx context.Context, sender Sender) []Outcome {
	if !q.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer q.draining.Store(false)

	var outcomes []Outcome

	for {
		if ctx.Err() != nil {
			return outcomes
		}

		head, ok := q.peek()
		if !ok {
			return outcomes
		}

		err := sender.Replay(ctx, head.Method, head.Path, head.Body, head.Headers)
		if err != nil && !sender.Online() {
			// Connectivity lost mid-drain: keep the head for the next pass.
			q.logger.Info("drain paused, host offline", "pending", q.Size())
			return outcomes
		}

		q.pop(head.ID)

		if err != nil {
			q.logger.Warn("queued mutation rejected, dropping entry",
				"id", head.ID, "method", head.Method, "path", head.Path, "error", err)

			outcomes = append(outcomes, Outcome{ID: head.ID, Err: err})

			continue
		}

		q.logger.Info("queued mutation replayed",
			"id", head.ID, "method", head.Method, "path", head.Path)

		outcomes = append(outcomes, Outcome{ID: head.ID, OK: true})
	}
}

// peek returns the head entry without removing it.
func (q *Queue) peek() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.hydrateLocked()

	if len(q.entries) == 0 {
		return Entry{}, false
	}

	return q.entries[0], true
}

// pop removes the entry with the given ID (always the head in practice) and
// persists the remainder.
func (q *Queue) pop(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}

	q.persistLocked()
}

// hydrateLocked loads the persisted sequence into the in-memory mirror on
// first use. A payload that fails to parse is discarded and the queue starts
// empty. Callers must hold q.mu.
func (q *Queue) hydrateLocked() {
	if q.hydrated {
		return
	}

	q.hydrated = true

	raw, ok, err := q.kv.Get(pendingKey)
	if err != nil {
		q.logger.Warn("queue storage unavailable, starting in-memory", "error", err)
		return
	}

	if !ok || raw == "" {
		return
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		q.logger.Warn("discarding unparseable queue state", "error", err)

		if removeErr := q.kv.Remove(pendingKey); removeErr != nil {
			q.logger.Warn("could not remove corrupt queue state", "error", removeErr)
		}

		return
	}

	q.entries = entries

	q.logger.Debug("queue hydrated from durable storage", "pending", len(entries))
}

// persistLocked flushes the in-memory mirror back to durable storage. Write
// failures are absorbed: the mirror stays authoritative for this process.
// Callers must hold q.mu.
func (q *Queue) persistLocked() {
	raw, err := json.Marshal(q.entries)
	if err != nil {
		q.logger.Warn("could not serialise queue state", "error", err)
		return
	}

	if err := q.kv.Set(pendingKey, string(raw)); err != nil {
		q.logger.Warn("queue flush failed, storage unavailable", "error", err)
	}
}

// CanonicalHeaders normalises an http.Header to a plain name→value mapping
// safe to serialise. Multi-valued headers collapse to a comma-joined value
// per RFC 9110 list syntax.
func CanonicalHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	out := make(map[string]string, len(headers))

	for name, values := range headers {
		if len(values) == 0 {
			continue
		}

		out[name] = strings.Join(values, ", ")
	}

	return out
}
