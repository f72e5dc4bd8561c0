package schema

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps the object-info document in process for a fixed TTL.
type MemoryCache struct {
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	data     []byte
	storedAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil || m.now().Sub(m.storedAt) >= m.ttl {
		return nil, false, nil
	}

	return m.data, true, nil
}

func (m *MemoryCache) Set(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data
	m.storedAt = m.now()

	return nil
}
