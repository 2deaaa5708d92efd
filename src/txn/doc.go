// Package txn implements a key-value store of integers that executes
// transactions locally and replicates their writes to the other nodes on a best
// effort basis.
//
// A transaction is a list of operations, each encoded as a JSON array:
//
//  ["r", key, null]   read key
//  ["w", key, value]  write value to key
//
// The operations of a transaction are applied in order under one lock, so a
// read observes the writes made earlier in the same transaction. A read of a
// key that was never written returns null. Once the transaction is applied, its
// writes are sent to every other node in a sync message. Nothing waits for, or
// retries, this replication: a lost sync leaves the receiving node behind, and
// concurrent writes to the same key on different nodes are resolved by the
// order in which each node applies them.
package txn
