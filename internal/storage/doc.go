// Package storage provides the in-memory container a shard keeps its store
// records in.
//
// # Overview
//
// A shard owns a few hundred to a few thousand store records, each with its
// own product list. Most operations touch a single store; a few enumerate all
// of them. The container lets single-store mutations run in parallel across
// stores while enumeration still sees every record.
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│ MemoryStore                          │
//	├──────────────────────────────────────┤
//	│ mu (RWMutex)                         │
//	│   guards the name → entry map only   │
//	├──────────────────────────────────────┤
//	│ "Olive" → entry{mu, rec}             │
//	│ "Pita"  → entry{mu, rec}             │
//	│ ...                                  │
//	│   entry.mu guards products, sales    │
//	│   and rating of that one store       │
//	└──────────────────────────────────────┘
//
// # Core Interfaces
//
// Store: the operations a shard relies on
//   - Insert: add a record if the name is free
//   - Update: mutate one record under its lock
//   - Get, Snapshot, Each: read copies or visit records
//   - Stats: store and product counts
//
// # Concurrency and Thread Safety
//
// Rules every method follows:
//   - The container lock is never acquired while a store lock is held.
//   - At most one store lock is held at a time.
//   - Enumeration collects entry pointers under the container read lock,
//     releases it, then visits each entry under its own lock.
//
// Entries are never removed, so a pointer obtained under the container lock
// stays valid after the lock is released.
//
//	Insert     container write lock
//	Update     container read lock to find, then store lock to mutate
//	Get        container read lock to find, then store lock to copy
//	Each       container read lock to collect, then one store lock at a time
//
// # Memory Management
//
// Records never leave the container by reference: every read returns a
// deep copy made while the store lock is held, and Insert copies the record
// it is given. Callers may keep and modify what they receive.
//
// # Error Handling
//
//	fault.ErrAlreadyExists   Insert with a name already present
//	fault.ErrNotFound        Update or Get of an unknown name
//
// Errors returned by the function passed to Update are returned unchanged,
// and the record keeps whatever the function wrote before failing. The
// catalog rules validate before mutating, so a failed operation leaves the
// record as it was.
//
// # Usage Examples
//
//	s := storage.NewMemoryStore()
//	if err := s.Insert(rec); err != nil {
//	    return err
//	}
//
//	err := s.Update("Olive", func(st *catalog.Store) error {
//	    _, err := st.Purchase("gyros", 2)
//	    return err
//	})
//
//	s.Each(func(st *catalog.Store) {
//	    total += st.TotalSales
//	})
//
// # Testing
//
// The tests race more purchases than there is stock against concurrent
// snapshots and check that stock, units sold and total sales end up exact.
//
// # See Also
//
// Related packages:
//   - internal/catalog: the record types and their rules
//   - internal/shard: the only user of the container
package storage
