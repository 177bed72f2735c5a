// Package pending tracks searches that are waiting for their merged result.
//
// Each search registers its correlation id before broadcasting. The
// coordinator's callback listener completes the entry when the aggregator
// delivers; the searching session blocks in Await until then or until its
// deadline passes. The first completion wins: later completions for the same
// id, and completions for ids that timed out, are dropped.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/fault"
)

// Entry is a registered search awaiting completion.
type Entry struct {
	ID         string
	Registered time.Time

	ch chan []catalog.Store
}

// Info describes a waiting entry for inspection.
type Info struct {
	CorrelationID string        `json:"correlationId"`
	Waiting       time.Duration `json:"waiting"`
}

// Table maps correlation ids to waiting searches.
type Table struct {
	mu      sync.Mutex
	entries map[string]*Entry
	log     *log.Entry
}

// New returns an empty table.
func New(logger *log.Entry) *Table {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Table{entries: make(map[string]*Entry), log: logger}
}

// Register opens a waiting entry for id. Registering an id twice is an error.
func (t *Table) Register(id string) (*Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		return nil, fmt.Errorf("%w: correlation id %s", fault.ErrAlreadyExists, id)
	}
	e := &Entry{ID: id, Registered: time.Now(), ch: make(chan []catalog.Store, 1)}
	t.entries[id] = e
	return e, nil
}

// Complete hands stores to the search waiting on id. It reports false when no
// search is waiting, either because the id is unknown, already completed, or
// timed out.
func (t *Table) Complete(id string, stores []catalog.Store) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		t.log.WithField("correlation_id", id).Warn("dropping result for unknown or expired search")
		return false
	}
	e.ch <- stores
	return true
}

// Await blocks until e is completed, timeout elapses, or ctx is done. On
// timeout or cancellation the entry is removed so a later completion is dropped.
func (t *Table) Await(ctx context.Context, e *Entry, timeout time.Duration) ([]catalog.Store, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case stores := <-e.ch:
		return stores, nil
	case <-timer.C:
		return t.abandon(e, fmt.Errorf("%w: search %s after %v", fault.ErrTimeout, e.ID, timeout))
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: search %s: %v", fault.ErrTimeout, e.ID, err)
		}
		return t.abandon(e, err)
	}
}

// abandon removes e unless a completion raced in first, in which case that
// result is returned instead of err.
func (t *Table) abandon(e *Entry, err error) ([]catalog.Store, error) {
	t.mu.Lock()
	if cur, ok := t.entries[e.ID]; ok && cur == e {
		delete(t.entries, e.ID)
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	// Complete removed the entry before we did; its send is buffered.
	return <-e.ch, nil
}

// Cancel removes e without waiting, for searches that fail before Await.
func (t *Table) Cancel(e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.entries[e.ID]; ok && cur == e {
		delete(t.entries, e.ID)
	}
}

// Len returns the number of waiting searches.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Pending lists waiting searches, oldest first.
func (t *Table) Pending() []Info {
	now := time.Now()

	t.mu.Lock()
	out := make([]Info, 0, len(t.entries))
	for id, e := range t.entries {
		out = append(out, Info{CorrelationID: id, Waiting: now.Sub(e.Registered)})
	}
	t.mu.Unlock()

	slices.SortFunc(out, func(a, b Info) int {
		switch {
		case a.Waiting > b.Waiting:
			return -1
		case a.Waiting < b.Waiting:
			return 1
		}
		return 0
	})
	return out
}
