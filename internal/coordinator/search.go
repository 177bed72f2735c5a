package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/fault"
)

// Search runs the scatter-gather search for a session: broadcast the
// criteria to every shard, wait for the aggregator's merged result, then keep
// the stores within range of the session's last known location.
//
// The session must have reported a location with show_stores first. The
// search timeout covers the broadcast and the wait together; a search that
// does not complete within it fails with fault.ErrTimeout and leaves no
// pending entry behind.
func (c *Coordinator) Search(ctx context.Context, session string, criteria catalog.Criteria) ([]catalog.Store, error) {
	origin, ok := c.locations.Get(session)
	if !ok {
		return nil, fmt.Errorf("%w: please set your location first using show_stores", fault.ErrPrecondition)
	}

	id := uuid.NewString()
	entry, err := c.pending.Register(id)
	if err != nil {
		return nil, err
	}

	logger := c.log.WithFields(log.Fields{"correlation_id": id, "session": session})
	logger.WithField("criteria", criteria).Info("starting search")

	// The broadcast and the wait share one deadline.
	deadline := time.Now().Add(c.searchTimeout)
	broadcastCtx, cancel := context.WithDeadline(ctx, deadline)
	reached := c.broadcastSearch(broadcastCtx, cluster.SearchRequest{Criteria: criteria, CorrelationID: id})
	cancel()
	logger.Debugf("search broadcast reached %d/%d shards", reached, c.registry.NumShards())

	stores, err := c.pending.Await(ctx, entry, time.Until(deadline))
	if err != nil {
		if errors.Is(err, fault.ErrTimeout) {
			logger.Warn("search timed out")
			return nil, fmt.Errorf("%w: search timed out after %v", fault.ErrTimeout, c.searchTimeout)
		}
		return nil, err
	}

	nearby := catalog.FilterNearby(origin, stores)
	logger.WithFields(log.Fields{"matched": len(stores), "nearby": len(nearby)}).Info("search completed")
	return nearby, nil
}

// broadcastSearch sends req to every shard. A shard that cannot be reached
// will never submit its partial, so the search will time out.
func (c *Coordinator) broadcastSearch(ctx context.Context, req cluster.SearchRequest) int {
	return broadcastMerge(ctx, c, cluster.CmdSearch, req, func(int, string) {})
}

// CompleteSearch hands an aggregator result to the waiting session.
func (c *Coordinator) CompleteSearch(res cluster.SearchResult) bool {
	return c.pending.Complete(res.CorrelationID, res.Stores)
}
