package net

import (
	"net"
	"time"
)

// StreamLayer gives a NetworkTransport its connections: it accepts the
// connections peers dial to us and dials theirs.
type StreamLayer interface {
	net.Listener

	// Dial opens an outbound connection to address.
	Dial(address string, timeout time.Duration) (net.Conn, error)

	// AdvertiseAddr is the address written into outbound frames, where peers
	// send their replies.
	AdvertiseAddr() string
}

// wireFrame is one line on a stream connection: a message and the address its
// sender listens on. Connections only carry frames in the direction they were
// dialed, so a receiver uses From to reach senders it was not configured with,
// such as one-shot clients.
type wireFrame struct {
	From string `json:"from,omitempty"`
	Message
}

func newWireFrame(stream StreamLayer, msg Message) *wireFrame {
	return &wireFrame{
		From:    stream.AdvertiseAddr(),
		Message: msg,
	}
}

// sender returns the node id and the address announced by the frame. ok is
// false for anonymous frames.
func (f *wireFrame) sender() (id string, addr string, ok bool) {
	if f.Src == "" || f.From == "" {
		return "", "", false
	}
	return f.Src, f.From, true
}
