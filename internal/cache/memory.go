package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Memory is a process-local Store with lazy expiration. Every operation runs
// under one mutex, so concurrent callers never see a torn entry.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty cache. A non-positive ttl falls back to DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries:    make(map[string]entry),
		defaultTTL: ttl,
		now:        time.Now,
	}
}

// Get returns the value for key. An expired entry is removed and reported as a
// miss.
func (m *Memory) Get(_ context.Context, key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the default TTL, replacing any previous entry.
func (m *Memory) Set(ctx context.Context, key string, value interface{}) {
	m.SetWithTTL(ctx, key, value, m.defaultTTL)
}

// SetWithTTL stores value under key until now+ttl.
func (m *Memory) SetWithTTL(_ context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// DeletePrefix removes every key starting with prefix.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

// Stats counts entries without evicting anything.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := Stats{Total: len(m.entries)}
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			s.Active++
		} else {
			s.Expired++
		}
	}
	return s
}
