// Package cluster defines the wire protocol shared by storegrid processes.
//
// # Overview
//
// Every message is a single JSON value written to a TCP stream. There is no
// length prefix; json.Decoder finds value boundaries on its own. The package
// holds the command vocabulary, the payload types, the worker roster type and
// the connection helpers every process uses.
//
// # Architecture
//
//	┌──────────┐  session   ┌─────────────┐  Call   ┌───────┐
//	│  client  │ ─────────► │ coordinator │ ──────► │ shard │
//	└──────────┘            └─────────────┘         └───┬───┘
//	                               ▲                    │ Push
//	                               │ Push          ┌────▼───────┐
//	                               └────────────── │ aggregator │
//	                                               └────────────┘
//
// # Communication Protocol
//
// Four conversation shapes exist:
//
//	client      ⇄ coordinator  long-lived session: command, payload, reply, continuation
//	coordinator → shard        one Request and one Reply per connection (Call)
//	shard       → aggregator   one Partial, answered by an Ack (Push)
//	aggregator  → coordinator  one SearchResult, answered by an Ack (Push)
//
// A shard Reply is {ok, error, kind, data}. Failed replies carry the error
// kind from package fault so callers can match them with errors.Is on the
// other side of the connection:
//
//	{"ok": false, "error": "store Olive", "kind": "not_found"}
//	→ errors.Is(err, fault.ErrNotFound) == true
//
// # Core Components
//
// Conn: a net.Conn with a JSON encoder and decoder
//
// Call, Push: one-shot client exchanges with a context deadline applied to
// both the dial and the connection
//
// Server: accept loop with one goroutine per connection
//   - Close stops accepting, closes live connections and waits for handlers
//   - A handler that panics is logged and its connection closed; the
//     process and the other connections keep running
//
// Worker: one roster entry; ParseWorker reads "host:port"
//
// # Failure Handling
//
//	dial or write or read failure   fault.ErrUnreachable
//	undecodable reply data          fault.ErrProtocol
//	Ack{OK: false}                  fault.ErrProtocol
//
// # Usage Example
//
//	var stores []catalog.Store
//	err := cluster.Call(ctx, "10.0.0.2:6001", cluster.CmdGetAllStores, nil, &stores)
//	if errors.Is(err, fault.ErrUnreachable) {
//	    // skip this shard
//	}
//
// # Testing
//
// Tests start a Server on 127.0.0.1:0 and exercise Call against it.
//
// # See Also
//
// Related packages:
//   - internal/fault: the error kinds carried in replies
//   - internal/client: the client side of the session protocol
package cluster
