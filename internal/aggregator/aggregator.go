// Package aggregator implements the search barrier that joins per-shard
// partial results into one result per correlation id.
//
// A bucket is opened by the first partial for an id and finalized exactly
// once, under the aggregator lock, when partials from the expected number of
// distinct shards have arrived. Finalizing removes the bucket and leaves a
// tombstone so late or duplicate partials for the same id are dropped.
//
// Buckets that never complete (a shard crashed or a broadcast was lost) are
// evicted by a periodic sweep once they are older than the configured TTL.
package aggregator

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
)

// Deliverer hands a merged result to the coordinator.
type Deliverer interface {
	Deliver(ctx context.Context, res cluster.SearchResult) error
}

// CoordinatorClient delivers results to the coordinator's callback listener.
type CoordinatorClient struct {
	Addr string
}

// Deliver pushes res and waits for the coordinator's acknowledgement.
func (c CoordinatorClient) Deliver(ctx context.Context, res cluster.SearchResult) error {
	return cluster.Push(ctx, c.Addr, res)
}

type bucket struct {
	opened   time.Time
	partials []cluster.Partial
	shards   map[int]bool
}

// BucketInfo describes an open bucket.
type BucketInfo struct {
	CorrelationID string        `json:"correlationId"`
	Received      int           `json:"received"`
	Expected      int           `json:"expected"`
	Age           time.Duration `json:"age"`
}

// Stats counts barrier outcomes since start.
type Stats struct {
	Open      int    `json:"open"`
	Finalized uint64 `json:"finalized"`
	Dropped   uint64 `json:"dropped"`
	Evicted   uint64 `json:"evicted"`
}

// Aggregator is the counting barrier keyed by correlation id.
type Aggregator struct {
	expected int
	ttl      time.Duration
	deliver  Deliverer
	log      *log.Entry
	now      func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	finalized map[string]time.Time // tombstones of completed or evicted ids
	stats     Stats

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an aggregator expecting one partial from each of expected shards.
// Buckets and tombstones older than ttl are reclaimed by the sweep started with Start.
func New(expected int, ttl time.Duration, deliver Deliverer, logger *log.Entry) *Aggregator {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Aggregator{
		expected:  expected,
		ttl:       ttl,
		deliver:   deliver,
		log:       logger,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		finalized: make(map[string]time.Time),
	}
}

// Expected returns the configured shard count.
func (a *Aggregator) Expected() int {
	return a.expected
}

// Add records p. When p completes its bucket, the bucket is removed and the
// merged result returned with done set. Late and duplicate partials are dropped.
func (a *Aggregator) Add(p cluster.Partial) (res cluster.SearchResult, done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.log.WithFields(log.Fields{"correlation_id": p.CorrelationID, "shard": p.ShardID})

	if _, seen := a.finalized[p.CorrelationID]; seen {
		a.stats.Dropped++
		entry.Warn("dropping partial for finalized search")
		return res, false
	}

	b, ok := a.buckets[p.CorrelationID]
	if !ok {
		b = &bucket{opened: a.now(), shards: make(map[int]bool)}
		a.buckets[p.CorrelationID] = b
	}
	if b.shards[p.ShardID] {
		a.stats.Dropped++
		entry.Warn("dropping duplicate partial")
		return res, false
	}
	b.shards[p.ShardID] = true
	b.partials = append(b.partials, p)
	entry.WithField("received", len(b.partials)).Debug("partial recorded")

	if len(b.partials) < a.expected {
		return res, false
	}

	delete(a.buckets, p.CorrelationID)
	a.finalized[p.CorrelationID] = a.now()
	a.stats.Finalized++
	return merge(p.CorrelationID, b.partials), true
}

// merge re-applies each partial's criteria and concatenates the matches in shard order.
func merge(id string, partials []cluster.Partial) cluster.SearchResult {
	ordered := append([]cluster.Partial(nil), partials...)
	slices.SortFunc(ordered, func(x, y cluster.Partial) int { return x.ShardID - y.ShardID })

	stores := make([]catalog.Store, 0)
	for _, p := range ordered {
		stores = append(stores, p.Criteria.Filter(p.Stores)...)
	}
	return cluster.SearchResult{CorrelationID: id, Stores: stores}
}

// Submit records p and, when it completes the bucket, delivers the merged result.
func (a *Aggregator) Submit(ctx context.Context, p cluster.Partial) error {
	res, done := a.Add(p)
	if !done {
		return nil
	}
	return a.Deliver(ctx, res)
}

// Deliver forwards a finalized result to the coordinator.
func (a *Aggregator) Deliver(ctx context.Context, res cluster.SearchResult) error {
	entry := a.log.WithFields(log.Fields{"correlation_id": res.CorrelationID, "stores": len(res.Stores)})
	if err := a.deliver.Deliver(ctx, res); err != nil {
		entry.WithError(err).Error("failed to deliver search result")
		return err
	}
	entry.Info("search result delivered")
	return nil
}

// Sweep evicts buckets and tombstones older than the TTL and returns the
// number of buckets evicted.
func (a *Aggregator) Sweep() int {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for id, b := range a.buckets {
		if now.Sub(b.opened) < a.ttl {
			continue
		}
		delete(a.buckets, id)
		a.finalized[id] = now
		evicted++
		a.log.WithFields(log.Fields{
			"correlation_id": id,
			"received":       len(b.partials),
			"expected":       a.expected,
		}).Warn("evicted stale bucket")
	}
	for id, at := range a.finalized {
		if now.Sub(at) >= a.ttl {
			delete(a.finalized, id)
		}
	}
	a.stats.Evicted += uint64(evicted)
	return evicted
}

// Start runs the eviction sweep every interval until ctx is canceled or Stop is called.
func (a *Aggregator) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		a.log.Infof("bucket sweeper started with interval %v, ttl %v", interval, a.ttl)
		for {
			select {
			case <-ticker.C:
				a.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep and waits for it to exit.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
}

// Buckets lists open buckets.
func (a *Aggregator) Buckets() []BucketInfo {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]BucketInfo, 0, len(a.buckets))
	for id, b := range a.buckets {
		out = append(out, BucketInfo{
			CorrelationID: id,
			Received:      len(b.partials),
			Expected:      a.expected,
			Age:           now.Sub(b.opened),
		})
	}
	slices.SortFunc(out, func(x, y BucketInfo) int {
		switch {
		case x.CorrelationID < y.CorrelationID:
			return -1
		case x.CorrelationID > y.CorrelationID:
			return 1
		}
		return 0
	})
	return out
}

// Stats returns barrier counters.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Open = len(a.buckets)
	return s
}
