package net

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// InmemTransport Implements the Transport interface, to allow murmur to be
// tested in-memory without going over a network. The address of an
// InmemTransport is the id of the node using it.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan Message
	localAddr  string
	peers      map[string]*InmemTransport
	timeout    time.Duration

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		consumerCh: make(chan Message, 1024),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		timeout:    500 * time.Millisecond,
		shutdownCh: make(chan struct{}),
	}
	return addr, trans
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan Message {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// Send implements the Transport interface. A message addressed to a peer that
// is not connected fails immediately, like a refused connection would.
func (i *InmemTransport) Send(msg Message) error {
	i.RLock()
	peer, ok := i.peers[msg.Dest]
	i.RUnlock()

	if !ok {
		return fmt.Errorf("failed to connect to peer: %v", msg.Dest)
	}

	select {
	case peer.consumerCh <- msg:
		return nil
	case <-peer.shutdownCh:
		return ErrTransportShutdown
	case <-time.After(i.timeout):
		return fmt.Errorf("send to %v timed out", msg.Dest)
	}
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.DisconnectAll()
	i.shutdownOnce.Do(func() { close(i.shutdownCh) })
	return nil
}

// Listen blocks until the transport is closed; there is nothing to accept
// in-memory.
func (i *InmemTransport) Listen() {
	<-i.shutdownCh
}
