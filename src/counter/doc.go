// Package counter implements a grow-only counter on top of a shared key-value
// store.
//
// Every node owns one bucket, stored under its own id. Add increments the
// local bucket with a compare-and-swap loop, so concurrent adds at the same node
// never lose a delta. Read sums the local bucket with the buckets of every other
// node, which each node reports for itself through read_bucket. A read fails if
// any node cannot be reached.
package counter
