package storage

import (
	"context"
	"sync"
)

// Memory is a process-local SessionStorage.  It survives store restarts
// within one process, which is enough for tests and single-run development.
type Memory struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemory() *Memory { return &Memory{vals: map[string]string{}} }

func (m *Memory) Load(_ context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vals[KeyToken], m.vals[KeyUser], nil
}

func (m *Memory) Save(_ context.Context, token, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[KeyToken] = token
	m.vals[KeyUser] = user
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, KeyToken)
	delete(m.vals, KeyUser)
	return nil
}

// Set writes a single raw key.  Only tests and tooling use it, to stage
// corrupt or half-written state.
func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
}

// Get returns a single raw key.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok
}
