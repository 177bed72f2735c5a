// Package coordinator implements the single entry point of a storegrid
// cluster: it accepts client sessions, routes single-store commands to the
// shard that owns the store, merges multi-shard reads, and runs the search
// protocol together with the aggregator.
//
// # Overview
//
// The coordinator holds no catalog data. Every store lives on exactly one
// shard, chosen by hashing the store name, and the coordinator's job is to
// know which shard that is, to talk to it, and to assemble replies that span
// more than one shard. The only state it owns is the shard roster, the last
// known location of each client session, and the table of searches waiting
// for the aggregator.
//
// # Architecture
//
//	          client sessions
//	                │
//	┌───────────────▼────────────────────────────┐
//	│                COORDINATOR                 │
//	├────────────────────────────────────────────┤
//	│                                            │
//	│  ServeClient ─► Execute ─► execute         │
//	│                              │             │
//	│  ┌──────────────────────┐    │             │
//	│  │ ShardRegistry        │◄───┤ routeToOwner│
//	│  │ - roster → shard ids │    │ broadcastMerge
//	│  │ - name → owner       │    │             │
//	│  └──────────────────────┘    │             │
//	│  ┌──────────────────────┐    │             │
//	│  │ LocationTable        │◄───┤ show_stores │
//	│  │ - session → location │    │ search      │
//	│  └──────────────────────┘    │             │
//	│  ┌──────────────────────┐    │             │
//	│  │ pending.Table        │◄───┘ search      │
//	│  │ - correlation id →   │                  │
//	│  │   waiting session    │◄── ServeCallback │◄── aggregator
//	│  └──────────────────────┘                  │
//	│  ┌──────────────────────┐                  │
//	│  │ HealthMonitor        │ ping every shard │
//	│  └──────────────────────┘                  │
//	│                                            │
//	└────────────────────────────────────────────┘
//
// # Core Components
//
// ShardRegistry: immutable mapping built from the worker roster
//   - Roster position i is shard id i
//   - GetShardForKey computes shard.Bucket(name, N)
//   - Safe for concurrent use without locks; nothing changes after New
//
// Router (routeToOwner, broadcastMerge):
//   - routeToOwner sends one request to the owning shard with the call timeout
//   - broadcastMerge calls every shard in parallel and merges replies in
//     shard id order, skipping shards that fail
//
// Session loop (ServeClient, Execute):
//   - Reads command and payload, writes one reply, then reads the continuation
//   - Converts errors into "Error: ..." reply strings
//
// Search (Search, CompleteSearch, ServeCallback):
//   - Joins a blocked session with the aggregator's merged result
//
// HealthMonitor: periodic ping of every shard, reported on the admin API
//
// # Routing
//
// A store is owned by shard fnv32a(name) mod N, where N is the length of the
// worker roster. The coordinator is the only component that computes this;
// shards accept whatever the coordinator sends them.
//
//	register "Olive"  → Bucket("Olive", 3) = 0 → worker[0]
//	purchase "Pita"   → Bucket("Pita", 3)  = 2 → worker[2]
//
// Single-store commands (register, update, add_product, purchase, rate,
// sales_by_product) go to the owner only and surface its errors directly.
// There are no retries and no failover: the health monitor never influences
// routing, so a store is unavailable while its shard is down.
//
// Multi-shard reads (get_all_stores, show_stores, sales_by_food_category,
// sales_by_product_type) fan out to every shard. A shard that cannot be
// reached is logged and skipped and the merged reply covers the shards that
// answered. The reply does not say that it is partial.
//
// # Session Protocol
//
// Each exchange on a client connection is four JSON values:
//
//	client → "purchase"
//	client → {"storeName": "Olive", "productName": "gyros", "quantity": 2}
//	server → "Purchase successful: 2x gyros"
//	client → "yes"            (anything else ends the session)
//
// exit is sent with a payload that is read and ignored, and gets no reply.
// A command that fails, including an unknown command or a malformed payload,
// produces an error reply and keeps the session open. A failed read ends it.
//
// # Search Protocol
//
// The search runs in four phases:
//
// 1. Precondition:
//   - The session must have called show_stores; its location is the origin
//
// 2. Registration:
//   - A fresh uuid becomes the correlation id
//   - The id is registered in the pending table before anything is sent
//
// 3. Broadcast:
//   - The criteria and the id go to every shard
//   - Each shard filters locally and pushes its matches to the aggregator
//
// 4. Await:
//   - The session blocks until ServeCallback completes the id or the search
//     timeout passes; the timeout covers the broadcast and the wait together
//   - On success matches farther than 5 km from the origin are dropped
//   - On timeout the pending entry is removed, so a late callback is dropped
//
// # Concurrency and Synchronization
//
// Goroutine Patterns:
//   - One goroutine per client session and per aggregator callback
//   - broadcastMerge runs one goroutine per shard through errgroup
//   - The health monitor runs in its own goroutine until Shutdown
//
// Lock Granularity:
//   - ShardRegistry: none, immutable
//   - LocationTable: RWMutex over the session map
//   - pending.Table: one mutex; each waiter blocks on its own channel
//
// Only the issuing session blocks during a search. Other sessions, the
// listeners and the callback handler keep running.
//
// # Failure Scenarios and Recovery
//
// Shard unreachable:
//   - Routed command: Unreachable error reply to the client
//   - Broadcast read: shard skipped, merged reply covers the rest
//   - Search: the shard never submits a partial and the search times out
//
// Aggregator unreachable:
//   - Shards fail their search call; the search times out
//
// Late aggregator callback:
//   - CompleteSearch finds no entry, the result is acknowledged and dropped
//
// # Configuration
//
//	SearchTimeout: 30s   // broadcast plus wait for the aggregator
//	CallTimeout:   5s    // each request to a shard, dial included
//	Workers:             // roster, in shard id order
//
// # Usage Example
//
//	coord, err := coordinator.New(coordinator.Config{
//	    Workers:       cfg.Workers,
//	    SearchTimeout: 30 * time.Second,
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer coord.Shutdown()
//
//	callbacks, _ := cluster.Listen(":5002", coord.ServeCallback, logger)
//	clients, _ := cluster.Listen(":5000", coord.ServeClient, logger)
//	go callbacks.Serve()
//	go clients.Serve()
//
//	coord.StartHealthMonitor(5 * time.Second)
//	http.ListenAndServe(":8080", coord.Routes())
//
// # Admin API
//
//	GET /health    liveness
//	GET /shards    roster, health status and per-shard operation counters
//	GET /pending   searches awaiting the aggregator, oldest first
//
// # Limitations
//
//   - The roster is fixed at start-up; adding a shard moves most stores
//   - Client locations are kept for the life of the process
//   - Broadcast reads do not flag missing shards
//
// # See Also
//
// Related packages:
//   - internal/shard: the partition each worker serves
//   - internal/aggregator: the counting barrier that merges search partials
//   - internal/pending: the table a search waits on
//   - cmd/coordinator: the coordinator process
package coordinator
