package cache

import (
	"context"
	"sync"
	"time"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

var _ LocationCache = (*Memory)(nil)

type entry struct {
	loc       domain.UserLocation
	expiresAt time.Time
}

type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (*domain.UserLocation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	loc := e.loc
	return &loc, true, nil
}

func (m *Memory) Set(_ context.Context, key string, loc *domain.UserLocation, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)
	m.entries[key] = entry{loc: *loc, expiresAt: now.Add(ttl)}
	return nil
}

// sweep drops expired entries so keys that are never read again do not pile up.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
