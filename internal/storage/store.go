package storage

import (
	"fmt"
	"sync"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/fault"
)

// Store defines the container operations a shard relies on.
// All implementations must be thread-safe for concurrent access.
type Store interface {
	// Insert adds rec if no store with the same name exists.
	// Returns fault.ErrAlreadyExists otherwise.
	Insert(rec catalog.Store) error

	// Update runs fn on the named store while holding that store's lock.
	// Returns fault.ErrNotFound if the store doesn't exist.
	Update(name string, fn func(*catalog.Store) error) error

	// Get returns a copy of the named store.
	Get(name string) (catalog.Store, error)

	// Snapshot returns copies of every store. Order is not guaranteed.
	Snapshot() []catalog.Store

	// Each calls fn with a read-only view of every store, one store lock at a time.
	Each(fn func(*catalog.Store))

	// Stats returns container statistics.
	Stats() StoreStats
}

// StoreStats contains statistics about the container.
type StoreStats struct {
	Stores   int // Number of stores
	Products int // Number of products across all stores
}

type entry struct {
	mu  sync.Mutex
	rec catalog.Store
}

// MemoryStore implements Store with an in-memory map of per-store entries.
type MemoryStore struct {
	mu   sync.RWMutex      // Protects the map structure
	data map[string]*entry // Store name → entry
}

// NewMemoryStore creates an empty container.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*entry),
	}
}

// Insert adds rec under its name.
// Makes a copy of the record to prevent external modification.
func (m *MemoryStore) Insert(rec catalog.Store) error {
	stored := rec.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[rec.Name]; exists {
		return fmt.Errorf("%w: store %s", fault.ErrAlreadyExists, rec.Name)
	}
	m.data[rec.Name] = &entry{rec: stored}
	return nil
}

func (m *MemoryStore) lookup(name string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.data[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: store %s", fault.ErrNotFound, name)
	}
	return e, nil
}

// Update runs fn under the named store's lock.
// The container lock is released before the store lock is taken.
func (m *MemoryStore) Update(name string, fn func(*catalog.Store) error) error {
	e, err := m.lookup(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.rec)
}

// Get returns a deep copy of the named store.
func (m *MemoryStore) Get(name string) (catalog.Store, error) {
	e, err := m.lookup(name)
	if err != nil {
		return catalog.Store{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), nil
}

func (m *MemoryStore) entries() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*entry, 0, len(m.data))
	for _, e := range m.data {
		out = append(out, e)
	}
	return out
}

// Each visits every store under its own lock. fn must not retain the pointer.
func (m *MemoryStore) Each(fn func(*catalog.Store)) {
	for _, e := range m.entries() {
		e.mu.Lock()
		fn(&e.rec)
		e.mu.Unlock()
	}
}

// Snapshot returns deep copies of all stores.
func (m *MemoryStore) Snapshot() []catalog.Store {
	var out []catalog.Store
	m.Each(func(s *catalog.Store) {
		out = append(out, s.Clone())
	})
	if out == nil {
		out = []catalog.Store{}
	}
	return out
}

// Stats returns container statistics.
func (m *MemoryStore) Stats() StoreStats {
	var stats StoreStats
	m.Each(func(s *catalog.Store) {
		stats.Stores++
		stats.Products += len(s.Products)
	})
	return stats
}
