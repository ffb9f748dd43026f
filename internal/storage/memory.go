package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means never
}

// MemoryKV is an in-process KV for tests and single-instance runs.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	pingErr error
}

// Ensure MemoryKV implements KV interface
var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetPingError makes Ping fail with err; nil restores success.
func (m *MemoryKV) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// lookup must be called with mu held. Expired entries are dropped on sight.
func (m *MemoryKV) lookup(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryKV) entry(value string, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	return e
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.entry(value, ttl)
	return nil
}

func (m *MemoryKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.entries[key] = m.entry(value, ttl)
	return true, nil
}

func (m *MemoryKV) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *MemoryKV) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *MemoryKV) Close() error {
	return nil
}
