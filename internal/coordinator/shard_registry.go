package coordinator

import (
	"errors"
	"fmt"

	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/shard"
)

// ShardAssignment binds a shard id to the worker process that hosts it.
//
// The shard id is the worker's position in the configured roster, so the
// same roster always yields the same assignments.
type ShardAssignment struct {
	// Worker is the node process serving the shard.
	Worker cluster.Worker `json:"worker"`

	// ShardID is the bucket number in [0, NumShards).
	ShardID int `json:"shardId"`
}

// Addr returns the worker's dial address.
func (a ShardAssignment) Addr() string {
	return a.Worker.Addr()
}

// ShardRegistry is the coordinator's authoritative map from store name to
// owning shard. Shards never derive placement themselves; every routed
// command goes through GetShardForKey.
//
// Routing:
//
//	store name → FNV-1a → bucket → worker
//	"Olive"    → 0x9c…  → 1      → 10.0.0.2:6001
//
// The roster is fixed at construction. Adding or removing workers changes
// the bucket of most stores and is not supported while data is loaded.
//
// Thread Safety:
// The registry is immutable after NewShardRegistry returns and needs no
// locking.
type ShardRegistry struct {
	assignments []ShardAssignment
}

// NewShardRegistry builds a registry from a worker roster. Roster order
// defines shard ids.
//
// Returns an error when the roster is empty or a worker has no host or a
// port outside 1..65535.
//
// Example:
//
//	registry, err := NewShardRegistry([]cluster.Worker{
//	    {Host: "10.0.0.1", Port: 6000},
//	    {Host: "10.0.0.2", Port: 6001},
//	})
func NewShardRegistry(workers []cluster.Worker) (*ShardRegistry, error) {
	if len(workers) == 0 {
		return nil, errors.New("worker roster is empty")
	}
	assignments := make([]ShardAssignment, 0, len(workers))
	for i, w := range workers {
		if w.Host == "" {
			return nil, fmt.Errorf("worker %d has no host", i)
		}
		if w.Port <= 0 || w.Port > 65535 {
			return nil, fmt.Errorf("worker %d has invalid port %d", i, w.Port)
		}
		assignments = append(assignments, ShardAssignment{ShardID: i, Worker: w})
	}
	return &ShardRegistry{assignments: assignments}, nil
}

// GetAssignment returns the assignment for shardID.
func (r *ShardRegistry) GetAssignment(shardID int) (ShardAssignment, bool) {
	if shardID < 0 || shardID >= len(r.assignments) {
		return ShardAssignment{}, false
	}
	return r.assignments[shardID], true
}

// GetAllAssignments returns every assignment in shard id order. The slice
// is a copy.
func (r *ShardRegistry) GetAllAssignments() []ShardAssignment {
	out := make([]ShardAssignment, len(r.assignments))
	copy(out, r.assignments)
	return out
}

// GetShardForKey maps a store name to its shard with the same bucket
// function the shards are populated by.
func (r *ShardRegistry) GetShardForKey(storeName string) int {
	return shard.Bucket(storeName, len(r.assignments))
}

// GetAssignmentForKey returns the assignment that owns storeName.
func (r *ShardRegistry) GetAssignmentForKey(storeName string) ShardAssignment {
	return r.assignments[r.GetShardForKey(storeName)]
}

// NumShards returns the roster size.
func (r *ShardRegistry) NumShards() int {
	return len(r.assignments)
}
