// Package cache stores coverage verdicts so that identical progress text is
// judged identically across requests.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ashureev/virtue-stages/internal/domain"
)

// Cache stores coverage verdicts by key.
type Cache interface {
	Get(ctx context.Context, key string) (domain.CoverageState, bool, error)
	Set(ctx context.Context, key string, state domain.CoverageState) error
	GetMark(ctx context.Context, key string) (Mark, bool, error)
	SetMark(ctx context.Context, key string, mark Mark) error
}

// Mark is the coverage established for a defect together with the progress
// text it was judged on. Longer text that starts with Text inherits State.
type Mark struct {
	Text  string               `json:"text"`
	State domain.CoverageState `json:"state"`
}

// Key derives a fixed-length cache key from its parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type memoryEntry struct {
	key     string
	state   domain.CoverageState
	mark    Mark
	expires time.Time
}

// Memory is a bounded in-process LRU cache.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	order   *list.List // front = most recently used
	entries map[string]*list.Element
	now     func() time.Time
}

// NewMemory creates an LRU cache holding at most maxSize verdicts for ttl.
// A non-positive ttl keeps entries until evicted.
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &Memory{
		ttl:     ttl,
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (domain.CoverageState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return domain.CoverageState{}, false, nil
	}
	return entry.state, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, state domain.CoverageState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key).state = state
	return nil
}

// GetMark implements Cache.
func (m *Memory) GetMark(_ context.Context, key string) (Mark, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return Mark{}, false, nil
	}
	return entry.mark, true, nil
}

// SetMark implements Cache.
func (m *Memory) SetMark(_ context.Context, key string, mark Mark) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key).mark = mark
	return nil
}

// lookup returns the live entry for key. Callers hold m.mu.
func (m *Memory) lookup(key string) (*memoryEntry, bool) {
	el, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return nil, false
	}
	m.order.MoveToFront(el)
	return entry, true
}

// store returns the entry for key with a fresh expiry, creating it and
// evicting the least recently used entries as needed. Callers hold m.mu.
func (m *Memory) store(key string) *memoryEntry {
	var expires time.Time
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}

	if el, ok := m.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.expires = expires
		m.order.MoveToFront(el)
		return entry
	}

	entry := &memoryEntry{key: key, expires: expires}
	m.entries[key] = m.order.PushFront(entry)
	for m.order.Len() > m.maxSize {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}
	return entry
}

// Len returns the number of cached verdicts.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
