package coordinator

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/storegrid/internal/cluster"
)

// routeToOwner sends command to the shard owning storeName and decodes the
// reply into out. Errors are returned as-is; there are no retries.
func (c *Coordinator) routeToOwner(ctx context.Context, storeName, command string, payload, out any) error {
	a := c.registry.GetAssignmentForKey(storeName)

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	err := cluster.Call(ctx, a.Addr(), command, payload, out)
	if err != nil {
		c.log.WithError(err).WithFields(log.Fields{
			"command": command,
			"store":   storeName,
			"shard":   a.ShardID,
		}).Debug("routed command failed")
	}
	return err
}

// broadcastMerge sends command to every shard in parallel and calls merge
// with each reply in shard id order. Shards that fail are logged and skipped.
// It returns the number of shards that answered.
func broadcastMerge[T any](ctx context.Context, c *Coordinator, command string, payload any, merge func(shardID int, part T)) int {
	assignments := c.registry.GetAllAssignments()
	parts := make([]*T, len(assignments))

	var g errgroup.Group
	for _, a := range assignments {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			var part T
			if err := cluster.Call(callCtx, a.Addr(), command, payload, &part); err != nil {
				c.log.WithError(err).WithFields(log.Fields{
					"command": command,
					"shard":   a.ShardID,
					"addr":    a.Addr(),
				}).Warn("skipping shard")
				return nil
			}
			parts[a.ShardID] = &part
			return nil
		})
	}
	_ = g.Wait()

	answered := 0
	for id, part := range parts {
		if part == nil {
			continue
		}
		answered++
		merge(id, *part)
	}
	return answered
}
