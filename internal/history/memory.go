package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/studybot/core/logger"
)

// Store keeps one Stack per conversation key.
type Store interface {
	Get(key string) (Stack, bool)
	Put(key string, s Stack)
	Delete(key string)
	Len() int
}

type entry struct {
	stack   Stack
	touched time.Time
}

// MemoryStore is an in-process Store with idle eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithIdleTTL sets how long an untouched conversation survives a sweep.
// Zero disables eviction.
func WithIdleTTL(d time.Duration) Option {
	return func(m *MemoryStore) {
		m.idleTTL = d
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the stack stored under key and refreshes its idle timer.
func (m *MemoryStore) Get(key string) (Stack, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Stack{}, false
	}
	e.touched = m.now()
	return e.stack, true
}

// Put stores s under key.
func (m *MemoryStore) Put(key string, s Stack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &entry{stack: s, touched: m.now()}
}

// Delete drops the stack stored under key.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the number of live conversations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep evicts conversations idle for longer than the TTL and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for k, e := range m.entries {
		if now.Sub(e.touched) > m.idleTTL {
			delete(m.entries, k)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || m.idleTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, "nav.history", "history.sweep",
					slog.String("status", "ok"),
					slog.Int("count", n),
					slog.Int("pending_count", m.Len()),
					slog.Duration("duration", logger.Took(start)),
				)
			}
		}
	}
}
