// Package murmur assembles a node from its configuration.
//
// A Murmur engine owns a transport, a node.Node and the components of its role.
// Under the stdio transport the engine talks to a test harness which sends the
// init message itself; under the TCP transport the cluster is described by a
// peers.json file in the data directory and the engine initialises the node
// from it.
//
// Roles
//
//	echo        replies to echo requests
//	unique-ids  generates cluster-wide unique ids
//	broadcast   gossips a grow-only set of integers
//	counter     bucketed grow-only counter on a seq-kv or lin-kv service
//	kafka       single-authority commit log
//	kafka-kv    commit log on a shared seq-kv or lin-kv service
//	txn         replicated transactional key/value store
//	seq-kv      serves a key/value store to other nodes
//	lin-kv      same as seq-kv
//
// The seq-kv and lin-kv roles make it possible to run the counter and kafka-kv
// roles outside of a harness, the store node being listed in peers.json with
// "Service": true.
package murmur
