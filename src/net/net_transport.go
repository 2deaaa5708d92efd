package net

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// large enough for a full gossip set in a single frame
	bufSize = math.MaxUint16
)

/*
NetworkTransport provides a network based transport that can be
used to communicate with murmur nodes on remote machines. It requires
an underlying stream layer to provide a stream abstraction, which can
be simple TCP, TLS, etc.

Connections are one-way: a node writes frames on the connections it dials and
reads frames on the connections it accepts. Replies travel on a connection
dialed by the replier. Each frame is a JSON object, and the receiver learns the
address of the sender from it.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	connPool     map[string][]*netConn
	connPoolLock sync.Mutex
	maxPool      int

	addrBook     map[string]string
	addrBookLock sync.RWMutex

	consumeCh chan Message

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	timeout time.Duration
}

type netConn struct {
	target string
	conn   net.Conn
	w      *bufio.Writer
	enc    *json.Encoder
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// NewNetworkTransport creates a new network transport with the given dialer
// and listener. The maxPool controls how many connections we will pool (per
// target). The timeout is used to apply I/O deadlines.
func NewNetworkTransport(
	stream StreamLayer,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	trans := &NetworkTransport{
		connPool:   make(map[string][]*netConn),
		addrBook:   make(map[string]string),
		consumeCh:  make(chan Message, 64),
		logger:     logger,
		maxPool:    maxPool,
		shutdownCh: make(chan struct{}),
		stream:     stream,
		timeout:    timeout,
	}

	return trans
}

// SetPeerAddr records the address where node id can be reached.
func (n *NetworkTransport) SetPeerAddr(id, addr string) {
	n.addrBookLock.Lock()
	defer n.addrBookLock.Unlock()
	n.addrBook[id] = addr
}

// PeerAddr returns the known address of node id.
func (n *NetworkTransport) PeerAddr(id string) (string, bool) {
	n.addrBookLock.RLock()
	defer n.addrBookLock.RUnlock()
	addr, ok := n.addrBook[id]
	return addr, ok
}

// Close is used to stop the network transport.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()

		n.connPoolLock.Lock()
		for _, conns := range n.connPool {
			for _, c := range conns {
				c.Release()
			}
		}
		n.connPool = make(map[string][]*netConn)
		n.connPoolLock.Unlock()

		n.shutdown = true
	}
	return nil
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan Message {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// getPooledConn is used to grab a pooled connection.
func (n *NetworkTransport) getPooledConn(target string) *netConn {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	conns, ok := n.connPool[target]
	if !ok || len(conns) == 0 {
		return nil
	}

	var conn *netConn
	num := len(conns)
	conn, conns[num-1] = conns[num-1], nil
	n.connPool[target] = conns[:num-1]
	return conn
}

// dialConn opens a new connection to target.
func (n *NetworkTransport) dialConn(target string, timeout time.Duration) (*netConn, error) {
	conn, err := n.stream.Dial(target, timeout)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriterSize(conn, bufSize)

	return &netConn{
		target: target,
		conn:   conn,
		w:      w,
		enc:    json.NewEncoder(w),
	}, nil
}

// returnConn returns a connection back to the pool.
func (n *NetworkTransport) returnConn(conn *netConn) {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	key := conn.target
	conns := n.connPool[key]

	if !n.IsShutdown() && len(conns) < n.maxPool {
		n.connPool[key] = append(conns, conn)
	} else {
		conn.Release()
	}
}

// Send implements the Transport interface. A pooled connection that fails is
// discarded and the frame is written once more on a fresh connection.
func (n *NetworkTransport) Send(msg Message) error {
	if n.IsShutdown() {
		return ErrTransportShutdown
	}

	target, ok := n.PeerAddr(msg.Dest)
	if !ok {
		return fmt.Errorf("unknown address for node %v", msg.Dest)
	}

	frame := newWireFrame(n.stream, msg)

	if conn := n.getPooledConn(target); conn != nil {
		if err := n.sendFrame(conn, frame); err == nil {
			n.returnConn(conn)
			return nil
		}
		n.logger.WithField("target", target).Debug("Pooled connection failed, redialing")
	}

	conn, err := n.dialConn(target, n.timeout)
	if err != nil {
		return err
	}

	if err := n.sendFrame(conn, frame); err != nil {
		return err
	}

	n.returnConn(conn)
	return nil
}

// sendFrame encodes and flushes one frame. The connection is released on
// failure.
func (n *NetworkTransport) sendFrame(conn *netConn, frame *wireFrame) error {
	if n.timeout > 0 {
		conn.conn.SetWriteDeadline(time.Now().Add(n.timeout))
	}

	if err := conn.enc.Encode(frame); err != nil {
		conn.Release()
		return err
	}

	if err := conn.w.Flush(); err != nil {
		conn.Release()
		return err
	}
	return nil
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		// Handle the connection in dedicated routine
		go n.handleConn(conn)
	}
}

// handleConn is used to handle an inbound connection for its lifespan. Frames
// that do not decode are skipped; the connection stays open.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := newLineDecoder(conn)

	for {
		err := n.handleFrame(dec)
		switch {
		case err == nil:
		case isBadLine(err):
			n.logger.WithError(err).WithField("from", conn.RemoteAddr()).Warn("Skipping malformed frame")
		case err == ErrTransportShutdown:
			n.logger.WithField("error", err).Debug("Dropping incoming frame")
			return
		default:
			if err != io.EOF && !n.IsShutdown() {
				n.logger.WithField("error", err).Error("Failed to read incoming frame")
			}
			return
		}
	}
}

// handleFrame is used to decode and dispatch a single frame.
func (n *NetworkTransport) handleFrame(dec *lineDecoder) error {
	var frame wireFrame
	if err := dec.Decode(&frame); err != nil {
		return err
	}

	if id, addr, ok := frame.sender(); ok {
		if known, found := n.PeerAddr(id); !found || known != addr {
			n.SetPeerAddr(id, addr)
		}
	}

	select {
	case n.consumeCh <- frame.Message:
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}

	return nil
}
