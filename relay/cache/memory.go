package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process LRU with per-item expiry.
type MemoryBackend struct {
	mu       sync.Mutex
	maxItems int
	items    map[string]*list.Element
	order    *list.List // front is most recently used
}

func NewMemoryBackend(maxItems int) *MemoryBackend {
	if maxItems <= 0 {
		maxItems = 1024
	}
	return &MemoryBackend{
		maxItems: maxItems,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elem, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	item := elem.Value.(*memoryItem)
	if !item.expiresAt.IsZero() && !time.Now().Before(item.expiresAt) {
		m.removeElement(elem)
		return nil, false, nil
	}
	m.order.MoveToFront(elem)
	return item.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	if elem, ok := m.items[key]; ok {
		item := elem.Value.(*memoryItem)
		item.value = value
		item.expiresAt = expiresAt
		m.order.MoveToFront(elem)
		return nil
	}
	m.items[key] = m.order.PushFront(&memoryItem{key: key, value: value, expiresAt: expiresAt})
	for m.order.Len() > m.maxItems {
		m.removeElement(m.order.Back())
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if elem, ok := m.items[key]; ok {
			m.removeElement(elem)
		}
	}
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element)
	m.order.Init()
	return nil
}

func (m *MemoryBackend) removeElement(elem *list.Element) {
	item := m.order.Remove(elem).(*memoryItem)
	delete(m.items, item.key)
}
