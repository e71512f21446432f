package store

import "sync"

// Memory implements KV with a mutex-guarded map. It is the fallback backend
// when the SQLite database cannot be opened, and a convenient test double.
// Nothing survives a restart.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemory creates an empty in-memory KV store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.m[key]

	return value, ok, nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = value

	return nil
}

func (s *Memory) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)

	return nil
}

func (s *Memory) Apply(sets map[string]string, removes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range sets {
		s.m[key] = value
	}

	for _, key := range removes {
		delete(s.m, key)
	}

	return nil
}

func (s *Memory) Close() error {
	return nil
}

// Compile-time interface check.
var _ KV = (*Memory)(nil)
