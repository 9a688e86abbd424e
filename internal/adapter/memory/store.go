package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
)

// ErrNotFound is returned by Get for an unknown or evicted result.
var ErrNotFound = domain.ErrResultNotFound

// Store keeps the most recent classified grids in process memory. It is the
// result store when Redis is disabled and implements pipeline.BatchLoader.
type Store struct {
	cache *lruCache
}

// NewStore creates a store holding at most maxEntries results.
func NewStore(maxEntries int) *Store {
	return &Store{cache: newLRUCache(maxEntries)}
}

// LoadBatch decodes and keeps each result. Undecodable events are skipped.
func (s *Store) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	var errs []error
	for _, e := range events {
		enc := domain.EncodingForContentType(e.Headers[domain.HeaderContentType])
		grid, err := domain.DecodeResult(e.Value, enc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.cache.put(grid.ID, grid)
	}
	return errors.Join(errs...)
}

func (s *Store) Put(_ context.Context, grid domain.ClassifiedGrid) error {
	s.cache.put(grid.ID, grid)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.ClassifiedGrid, error) {
	if grid, ok := s.cache.get(id); ok {
		return grid, nil
	}
	return domain.ClassifiedGrid{}, ErrNotFound
}

// Len reports how many results are held.
func (s *Store) Len() int {
	return s.cache.len()
}

// lruCache is a thread-safe LRU of classified grids keyed by job ID.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.ClassifiedGrid
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) get(key string) (domain.ClassifiedGrid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.ClassifiedGrid{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.ClassifiedGrid) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
