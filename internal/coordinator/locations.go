package coordinator

import (
	"sync"

	"github.com/dreamware/storegrid/internal/catalog"
)

// LocationTable remembers the last location each client session reported.
// Entries never expire; each show_stores overwrites the previous value.
type LocationTable struct {
	mu   sync.RWMutex
	locs map[string]catalog.Location
}

// NewLocationTable returns an empty table.
func NewLocationTable() *LocationTable {
	return &LocationTable{locs: make(map[string]catalog.Location)}
}

// Set records loc for session.
func (t *LocationTable) Set(session string, loc catalog.Location) {
	t.mu.Lock()
	t.locs[session] = loc
	t.mu.Unlock()
}

// Get returns the location last recorded for session.
func (t *LocationTable) Get(session string) (catalog.Location, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	loc, ok := t.locs[session]
	return loc, ok
}
