package coordinator

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dreamware/storegrid/internal/catalog"
	"github.com/dreamware/storegrid/internal/cluster"
	"github.com/dreamware/storegrid/internal/pending"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultSearchTimeout = 30 * time.Second
	DefaultCallTimeout   = 5 * time.Second
)

// Config holds the values the coordinator needs at runtime.
type Config struct {
	Workers []cluster.Worker

	// SearchTimeout bounds how long a search session waits for the aggregator.
	SearchTimeout time.Duration

	// CallTimeout bounds each request to a shard, dial included.
	CallTimeout time.Duration
}

// Coordinator routes client commands to shards and runs the search protocol.
type Coordinator struct {
	registry  *ShardRegistry
	pending   *pending.Table
	locations *LocationTable
	log       *log.Entry

	healthMu sync.Mutex
	health   *HealthMonitor

	searchTimeout time.Duration
	callTimeout   time.Duration

	// loadStore turns a register payload into a store record.
	loadStore func(path string) (*catalog.Store, error)

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a coordinator over the given worker roster.
func New(cfg Config, logger *log.Entry) (*Coordinator, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	registry, err := NewShardRegistry(cfg.Workers)
	if err != nil {
		return nil, err
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry:      registry,
		pending:       pending.New(logger),
		locations:     NewLocationTable(),
		log:           logger,
		searchTimeout: cfg.SearchTimeout,
		callTimeout:   cfg.CallTimeout,
		loadStore:     catalog.LoadStoreFile,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Registry exposes the shard registry.
func (c *Coordinator) Registry() *ShardRegistry {
	return c.registry
}

// Pending exposes the table of searches awaiting the aggregator.
func (c *Coordinator) Pending() *pending.Table {
	return c.pending
}

// StartHealthMonitor pings every shard each interval until Shutdown.
// A second call is a no-op.
func (c *Coordinator) StartHealthMonitor(interval time.Duration) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	if c.health != nil {
		return
	}
	h := NewHealthMonitor(interval, c.log.WithField("subsystem", "health"))
	h.SetOnUnhealthy(func(shardID int) {
		a, _ := c.registry.GetAssignment(shardID)
		c.log.WithFields(log.Fields{"shard": shardID, "addr": a.Addr()}).
			Warn("stores on this shard are unavailable until it recovers")
	})
	c.health = h
	go h.Start(c.ctx, c.registry.GetAllAssignments)
}

// healthMonitor returns the running monitor, or nil before StartHealthMonitor.
func (c *Coordinator) healthMonitor() *HealthMonitor {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	return c.health
}

// Shutdown cancels in-flight searches and stops the health monitor.
func (c *Coordinator) Shutdown() {
	c.cancel()
	if h := c.healthMonitor(); h != nil {
		h.Stop()
	}
}
