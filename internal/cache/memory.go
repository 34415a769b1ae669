package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 4096

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// Memory is an in-process Cache with per-entry TTL and LRU eviction. It is
// the fallback backend when no Redis URL is configured.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	now        func() time.Time
}

// NewMemory creates an in-process cache bounded to maxEntries (0 uses the
// default of 4096).
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return "", false
	}
	entry := elem.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.removeLocked(elem)
		return "", false
	}
	m.order.MoveToFront(elem)
	return entry.value, true
}

func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	if elem, ok := m.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		m.order.MoveToFront(elem)
		return
	}

	elem := m.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	m.entries[key] = elem

	for m.order.Len() > m.maxEntries {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.removeLocked(oldest)
	}
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.removeLocked(elem)
	}
}

// Len reports the number of live entries, expired ones included until read.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	delete(m.entries, entry.key)
	m.order.Remove(elem)
}
