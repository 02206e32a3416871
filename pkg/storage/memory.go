package storage

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	expiresAt time.Time // zero: never expires
	key       string
	value     []byte
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process driver. Entries live in a map for lookups and a
// list ordered by recency, so a capped store evicts the least recently used
// entry first.
type Memory struct {
	items    map[string]*list.Element
	eviction *list.List
	now      func() time.Time
	done     chan struct{}
	opts     memoryOptions
	mu       sync.Mutex
	closed   bool
}

// MemoryOption configures the memory driver.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now           func() time.Time
	sweepInterval time.Duration
	maxEntries    int
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		o.now = now
	}
}

// WithSweepInterval runs Sweep in a background goroutine every d.
// Zero (the default) disables it; expired entries are then removed on
// access or by an external sweeper.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.sweepInterval = d
	}
}

// WithMaxEntries caps the number of entries. Zero means unlimited.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = n
	}
}

// NewMemory creates an in-memory driver.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	if m.opts.now != nil {
		m.now = m.opts.now
	}
	if m.opts.sweepInterval > 0 {
		go m.janitor()
	}
	return m
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	value = append([]byte(nil), value...)

	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*memoryEntry)
		e.value = value
		e.expiresAt = expiresAt
		m.eviction.MoveToFront(elem)
		return nil
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		if oldest := m.eviction.Back(); oldest != nil {
			m.remove(oldest)
		}
	}

	m.items[key] = m.eviction.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	e := elem.Value.(*memoryEntry)
	if e.expired(m.now()) {
		m.remove(elem)
		return nil, ErrNotFound
	}

	m.eviction.MoveToFront(elem)
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
	return nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return ErrNotFound
	}
	e := elem.Value.(*memoryEntry)
	now := m.now()
	if e.expired(now) {
		m.remove(elem)
		return ErrNotFound
	}

	e.expiresAt = time.Time{}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	return nil
}

// Sweep removes expired entries, walking from least to most recently used.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	now := m.now()
	removed := 0
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			m.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Healthcheck fails once the driver is closed.
func (m *Memory) Healthcheck(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close stops the janitor. It is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(m.opts.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, _ = m.Sweep(context.Background())
		}
	}
}

// remove deletes elem. Caller must hold the mutex.
func (m *Memory) remove(elem *list.Element) {
	m.eviction.Remove(elem)
	delete(m.items, elem.Value.(*memoryEntry).key)
}

var _ Driver = (*Memory)(nil)
