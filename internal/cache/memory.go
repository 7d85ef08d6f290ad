package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. A sweeper goroutine drops expired entries.
type MemoryStore struct {
	mu          sync.RWMutex
	tags        map[string]map[string]memoryItem
	generations map[string]int64
	now         func() time.Time
	stopChan    chan struct{}
	stopOnce    sync.Once
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore sweeping every interval.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &MemoryStore{
		tags:        make(map[string]map[string]memoryItem),
		generations: make(map[string]int64),
		now:         time.Now,
		stopChan:    make(chan struct{}),
	}
	go s.sweep(interval)
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, tag, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.tags[tag][key]
	if !ok || !s.now().Before(item.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, tag, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(tag, key, value, ttl)
	return nil
}

// Generation implements Store.
func (s *MemoryStore) Generation(_ context.Context, tag string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[tag], nil
}

// SetAt implements Store. The write is dropped once generation is stale.
func (s *MemoryStore) SetAt(_ context.Context, tag string, generation int64, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[tag] != generation {
		return nil
	}
	s.setLocked(tag, key, value, ttl)
	return nil
}

func (s *MemoryStore) setLocked(tag, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	items, ok := s.tags[tag]
	if !ok {
		items = make(map[string]memoryItem)
		s.tags[tag] = items
	}
	items[key] = memoryItem{value: stored, expiresAt: s.now().Add(ttl)}
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, tag, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags[tag], key)
	return nil
}

// InvalidateAll implements Store.
func (s *MemoryStore) InvalidateAll(_ context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tag := range tags {
		delete(s.tags, tag)
		s.generations[tag]++
	}
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	return nil
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for tag, items := range s.tags {
				for key, item := range items {
					if !now.Before(item.expiresAt) {
						delete(items, key)
					}
				}
				if len(items) == 0 {
					delete(s.tags, tag)
				}
			}
			s.mu.Unlock()
		}
	}
}
