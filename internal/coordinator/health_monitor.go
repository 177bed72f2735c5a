package coordinator

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/cluster"
)

// Shard health states.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ShardHealth tracks the health status of a single shard worker.
// Protected by HealthMonitor's mutex when accessed.
type ShardHealth struct {
	LastCheck        time.Time `json:"lastCheck"`
	LastHealthy      time.Time `json:"lastHealthy"`
	Addr             string    `json:"addr"`
	Status           string    `json:"status"`
	ShardID          int       `json:"shardId"`
	ConsecutiveFails int       `json:"consecutiveFails"`
}

// HealthMonitor pings every shard worker periodically and records its status.
//
// Routing never consults the monitor: a store's owner is fixed by its bucket,
// so an unhealthy shard still receives its commands and the client sees the
// Unreachable error. The monitor exists for the admin API and logs.
type HealthMonitor struct {
	shards      map[int]*ShardHealth
	checkFunc   func(ctx context.Context, addr string) error
	onUnhealthy func(shardID int)
	log         *log.Entry
	ctx         context.Context
	cancel      context.CancelFunc
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	maxFailures int
}

// NewHealthMonitor creates a monitor that checks each shard every interval.
// A shard is marked unhealthy after 3 consecutive failed pings.
//
// Example:
//
//	monitor := NewHealthMonitor(5*time.Second, logger)
//	go monitor.Start(ctx, registry.GetAllAssignments)
func NewHealthMonitor(interval time.Duration, logger *log.Entry) *HealthMonitor {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &HealthMonitor{
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		shards:      make(map[int]*ShardHealth),
		log:         logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetOnUnhealthy sets the callback invoked when a shard transitions to unhealthy.
func (h *HealthMonitor) SetOnUnhealthy(callback func(shardID int)) {
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the ping used to probe a shard.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, addr string) error) {
	h.checkFunc = checkFunc
}

// Start runs health checks until ctx is canceled or Stop is called.
// It blocks; run it in its own goroutine.
func (h *HealthMonitor) Start(ctx context.Context, shards func() []ShardAssignment) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}
	if h.checkFunc == nil {
		h.checkFunc = ping
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Infof("health monitor started with interval %v", h.interval)

	h.checkAll(shards())

	for {
		select {
		case <-ticker.C:
			h.checkAll(shards())
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop cancels the monitor and waits for Start to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	h.log.Debug("health monitor stopped")
}

func (h *HealthMonitor) checkAll(shards []ShardAssignment) {
	for _, a := range shards {
		h.checkShard(a)
	}
}

func (h *HealthMonitor) checkShard(a ShardAssignment) {
	h.mu.Lock()
	health, exists := h.shards[a.ShardID]
	if !exists {
		health = &ShardHealth{
			ShardID:     a.ShardID,
			Addr:        a.Addr(),
			Status:      StatusUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.shards[a.ShardID] = health
	}
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	err := h.checkFunc(ctx, a.Addr())
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = time.Now()
	entry := h.log.WithFields(log.Fields{"shard": a.ShardID, "addr": a.Addr()})

	if err != nil {
		health.ConsecutiveFails++
		entry.WithError(err).Debugf("health check failed (%d/%d)", health.ConsecutiveFails, h.maxFailures)

		if health.ConsecutiveFails >= h.maxFailures && health.Status != StatusUnhealthy {
			health.Status = StatusUnhealthy
			entry.Warnf("shard marked unhealthy after %d failures", health.ConsecutiveFails)
			if h.onUnhealthy != nil {
				go h.onUnhealthy(a.ShardID)
			}
		}
		return
	}

	if health.Status == StatusUnhealthy {
		entry.Info("shard recovered")
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = time.Now()
}

// ping sends the shard a ping command.
func ping(ctx context.Context, addr string) error {
	var pong string
	return cluster.Call(ctx, addr, cluster.CmdPing, nil, &pong)
}

// GetShardHealth returns a copy of the health record for shardID, or nil if
// the shard has not been checked yet.
func (h *HealthMonitor) GetShardHealth(shardID int) *ShardHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.shards[shardID]
	if !exists {
		return nil
	}
	c := *health
	return &c
}

// GetAllShardHealth returns copies of all health records keyed by shard id.
func (h *HealthMonitor) GetAllShardHealth() map[int]*ShardHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[int]*ShardHealth, len(h.shards))
	for id, health := range h.shards {
		c := *health
		result[id] = &c
	}
	return result
}

// IsHealthy reports whether shardID passed its last check.
func (h *HealthMonitor) IsHealthy(shardID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.shards[shardID]
	return exists && health.Status == StatusHealthy
}
