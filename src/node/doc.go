// Package node implements the message-passing substrate shared by every murmur
// role.
//
// A Node owns a net.Transport and is the single point of I/O of the process.
// It reads inbound messages from the transport and dispatches them by body type
// to the handlers registered by the role (broadcast, counter, kafka, txn, ...).
// Every handler runs on its own goroutine so that a handler waiting on an RPC
// never blocks the read loop that will deliver the reply.
//
// Init
//
// A node starts in the Initialising state. It learns its own id and the ids of
// the cluster members from an init message (Maelstrom) or from peers.json (TCP
// clusters), runs the init hooks registered by the role, and enters the Running
// state. The membership never changes afterwards.
//
// RPC
//
// Outbound messages are stamped with a msg_id taken from a per-node counter.
// RPC registers a pending request under that id and waits for the message whose
// in_reply_to matches it, or for the context to expire. Replies that do not
// match a pending request, including late replies to requests that already
// timed out, are dropped.
//
// Errors
//
// A handler returning an error causes an error body to be sent back to the
// requester. The code is taken from a common.RPCError when there is one, and is
// Crash (13) otherwise. Requests of an unknown type are answered with a
// NotSupported (10) error.
package node
