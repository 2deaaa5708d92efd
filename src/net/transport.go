package net

import "errors"

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

// Transport provides an interface for network transports
// to allow a node to communicate with other nodes.
type Transport interface {

	// Starts the transport listening. Listen blocks until the transport is
	// closed.
	Listen()

	// Consumer returns a channel that can be used to consume inbound
	// messages.
	Consumer() <-chan Message

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Send delivers a message to msg.Dest. It does not wait for a reply.
	Send(msg Message) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
