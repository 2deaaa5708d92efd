// Package kv implements the external key-value store used by the counter and
// the shared-store commit log.
//
// A Store maps string keys to integers and supports Get, Put and an atomic
// CompareAndSwap that can optionally create a missing key. Client reaches a
// store served by another node (the seq-kv and lin-kv services of a Maelstrom
// cluster). InmemStore and BadgerStore are local implementations, and Service
// exposes any of them over the node substrate so that a murmur process can play
// the seq-kv or lin-kv role in a TCP cluster.
//
// Errors follow the Maelstrom codes: a missing key is KeyDoesNotExist (20) and
// a failed comparison is PreconditionFailed (22). Use IsNotFound and IsConflict
// to test for them.
package kv
