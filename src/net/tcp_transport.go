package net

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

var errNotAdvertisable = errors.New("local bind address is not advertisable")

// TCPStreamLayer is a StreamLayer over plain TCP.
type TCPStreamLayer struct {
	listener  *net.TCPListener
	advertise string
}

// NewTCPStreamLayer listens on bindAddr. Frames announce advertise, or the
// bound address when advertise is empty. Either way the announced address must
// name a concrete host, so binding 0.0.0.0 requires an explicit advertise
// address.
func NewTCPStreamLayer(bindAddr string, advertise string) (*TCPStreamLayer, error) {
	laddr, err := net.ResolveTCPAddr("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	list, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, err
	}

	if advertise == "" {
		advertise = list.Addr().String()
	}

	if err := checkAdvertisable(advertise); err != nil {
		list.Close()
		return nil, err
	}

	return &TCPStreamLayer{
		listener:  list,
		advertise: advertise,
	}, nil
}

func checkAdvertisable(addr string) error {
	resolved, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return err
	}
	if resolved.IP == nil || resolved.IP.IsUnspecified() {
		return errNotAdvertisable
	}
	return nil
}

// Dial implements the StreamLayer interface.
func (t *TCPStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	return dialer.Dial("tcp", address)
}

// Accept implements the net.Listener interface.
func (t *TCPStreamLayer) Accept() (net.Conn, error) {
	return t.listener.Accept()
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() error {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr implements the StreamLayer interface.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	return t.advertise
}

// NewTCPTransport returns a NetworkTransport over a TCPStreamLayer bound to
// bindAddr.
func NewTCPTransport(
	bindAddr string,
	advertise string,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) (*NetworkTransport, error) {
	stream, err := NewTCPStreamLayer(bindAddr, advertise)
	if err != nil {
		return nil, err
	}
	return NewNetworkTransport(stream, maxPool, timeout, logger), nil
}
