// Package catalog holds the store and product records owned by shards,
// together with the rules that mutate them: price tier derivation, rating,
// purchase validation and product updates.
//
// Records are plain values. Nothing in this package locks; callers (the
// shard's storage container) serialize access to a Store through that
// store's own lock, and hand out copies produced by Clone.
//
// Price tiers:
//
//	mean price <= 5   → "$"
//	mean price <= 15  → "$$"
//	otherwise         → "$$$"
//
// The tier is recomputed whenever the product set or a product price changes.
package catalog
