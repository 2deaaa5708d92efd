// Package commitlog implements replicated append-only logs addressed by key,
// with per-key committed offsets.
//
// Two implementations of Log are provided. InmemLog keeps every log in the
// memory of a single node, which is the authority for all keys. StoreLog keeps
// the logs in a shared linearizable key-value store, so that any node of the
// cluster can serve any request. StoreLog uses three families of store keys:
//
//  latest_offsets_<key>    the last offset allocated in the log
//  logs_<key>_<offset>     the message at offset
//  commited_offsets_<key>  the committed offset of the log
//
// Offsets are allocated with compare-and-swap on latest_offsets_<key>, which
// makes them unique and contiguous from 0 even when many nodes append to the
// same log concurrently.
package commitlog
