// Package broadcast disseminates integer messages to every node of a cluster
// by gossip.
//
// A node records the messages it is asked to broadcast in its seen set. Once
// it has learned its neighbors from a topology message, it sends its whole seen
// set to each of them every gossip interval. Receivers merge the set into their
// own. Gossip is fire-and-forget: a lost message is repaired by the next round,
// and a partitioned node catches up once the partition heals.
package broadcast
