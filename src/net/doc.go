// Package net implements the transports that carry messages between murmur
// nodes.
//
// Every message is a JSON envelope with a source, a destination, and an opaque
// body whose "type" field selects the handler on the receiving node. Transports
// only move envelopes; correlating requests with their replies is the job of
// the node package. There are three implementations of the Transport interface:
//
// - Stdio: newline-delimited JSON on stdin/stdout, as spoken by the Maelstrom
// test harness. The harness routes every message, so the transport does not
// need to know any addresses.
//
// - Inmem: in-memory transport used for testing. Transports are wired together
// explicitly with Connect, which also makes it easy to simulate partitions.
//
// - TCP: a NetworkTransport on top of a TCPStreamLayer, for running a cluster
// without the harness. Node ids are resolved to addresses through an address
// book seeded from peers.json. Every frame carries the advertise address of the
// sender, so a node can reply to clients it has never heard of.
package net
