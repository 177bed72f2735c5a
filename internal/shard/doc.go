// Package shard implements the catalog partition owned by one node process.
//
// # Overview
//
// A shard owns every store whose name falls into its hash bucket. The
// coordinator is the only component that computes buckets; a shard accepts
// whatever it is sent and never re-derives placement. Shards do not talk to
// each other and do not know how many peers they have.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│              SHARD                  │
//	├─────────────────────────────────────┤
//	│                                     │
//	│  ┌──────────────────────────────┐  │
//	│  │   storage.MemoryStore         │  │
//	│  │   - name → store entry        │  │
//	│  │   - one lock per store        │  │
//	│  └──────────────────────────────┘  │
//	│                                     │
//	│  ┌──────────────────────────────┐  │
//	│  │   OperationStats              │  │
//	│  │   - atomic counter per command│  │
//	│  └──────────────────────────────┘  │
//	│                                     │
//	│  ┌──────────────────────────────┐  │
//	│  │   Submitter                   │  │
//	│  │   - partials → aggregator     │  │
//	│  └──────────────────────────────┘  │
//	│                                     │
//	└─────────────────────────────────────┘
//	          ▲                    │
//	   Handler (one request        ▼
//	   per connection)         aggregator
//
// # Core Components
//
// Shard: the operations, one method per command
//   - Validates input and returns fault sentinels
//   - Counts every call in Stats
//
// Handler: binds a Shard to the wire protocol
//   - Reads one cluster.Request, dispatches it, writes one cluster.Reply
//   - Errors travel with their fault kind so the coordinator can match them
//
// AggregatorClient: the network Submitter, a cluster.Push per partial
//
// # Key Space Partitioning
//
//	bucket(name) = fnv32a(name) mod shardCount
//
//	"Olive"  → 0x0fcd236c mod 3 → 0
//	"Pita"   → 0x7d81d389 mod 3 → 2
//
// FNV-1a yields an unsigned 32-bit value so the result is never negative.
// The same name always lands in the same bucket for a fixed shard count.
//
// # Operations
//
// Mutations run under the owning store's lock through storage.Store.Update,
// so each one is atomic with respect to every other operation on that store:
//
//	Register     insert iff the name is free, price tier recomputed
//	Update       one change per call: price, quantity, or deactivate
//	AddProduct   append a new product, price tier recomputed
//	Purchase     check stock, then decrement stock, add units sold and sales
//	Rate         stars = floor((stars*votes + new) / (votes+1))
//
// Reads that span stores visit them one lock at a time:
//
//	AllStores             copies of every owned store
//	SalesByFoodCategory   revenue per store of the category
//	SalesByProductType    revenue of that product type per store
//	Products              one store's products, for sales_by_product
//	Search                local filter, then a partial to the aggregator
//
// # Search
//
// Search filters owned stores on food category, price tier and minimum stars
// and pushes the matches to the aggregator as a cluster.Partial together with
// the criteria. The shard replies to the coordinator only after the
// aggregator acknowledged the partial; it never waits for the merged result.
// A shard with no matches still submits an empty partial, because the
// aggregator counts partials, not stores.
//
// # Concurrency Model
//
// Thread Safety:
//   - All Shard methods are safe for concurrent use
//   - Store records are guarded by the container's per-store locks
//   - Stats counters are atomic and never block
//
// Consistency Guarantees:
//   - A purchase either applies all three field changes or none
//   - Two purchases of the last unit cannot both succeed
//   - Multi-store reads are not a snapshot: each store is copied under its own
//     lock, so stores may reflect different moments
//
// # Monitoring and Metrics
//
// Stats counts calls per command. The stats command returns them together with
// the store and product counts, and the coordinator's /shards admin route shows
// them per shard. Ping answers the coordinator's health monitor.
//
// # Usage Example
//
//	s := shard.NewShard(0, shard.AggregatorClient{Addr: "127.0.0.1:7000"})
//
//	srv, err := cluster.Listen(":6001", shard.NewHandler(s, logger).Serve, logger)
//	if err != nil {
//	    return err
//	}
//	go srv.Serve()
//	defer srv.Close()
//
// # Testing
//
// Shard methods are tested directly with a recording Submitter. The Handler
// is tested over a real TCP listener on 127.0.0.1:0 with cluster.Call.
//
// # Limitations
//
//   - State is volatile; a restarted shard starts empty
//   - Stores cannot be removed, only their products deactivated
//
// # See Also
//
// Related packages:
//   - internal/storage: the locked container behind every shard
//   - internal/catalog: store and product rules
//   - internal/aggregator: where search partials go
//   - cmd/node: the node process
package shard
