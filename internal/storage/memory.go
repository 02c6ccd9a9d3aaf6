package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryKV is an in-process KV with the same TTL semantics as redis.
// It backs tests and key-value-store-less development runs.
type MemoryKV struct {
	mu    sync.RWMutex
	now   func() time.Time
	items map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		now:   time.Now,
		items: make(map[string]memoryEntry),
	}
}

// SetClock substitutes the expiry clock, for tests.
func (m *MemoryKV) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.value, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = entry
	return nil
}
