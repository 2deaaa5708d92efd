package net

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// StdioTransport reads newline-delimited JSON messages from an io.Reader and
// writes them to an io.Writer. This is the framing used by the Maelstrom
// harness, which routes every message itself.
type StdioTransport struct {
	logger *logrus.Entry

	in  io.Reader
	dec *lineDecoder

	out      *bufio.Writer
	enc      *json.Encoder
	sendLock sync.Mutex

	consumeCh chan Message

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

// NewStdioTransport creates a transport reading from in and writing to out.
// The consumer channel is closed when in reaches EOF. Lines that are not
// messages are logged and skipped.
func NewStdioTransport(in io.Reader, out io.Writer, logger *logrus.Entry) *StdioTransport {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	w := bufio.NewWriterSize(out, bufSize)

	return &StdioTransport{
		logger:     logger,
		in:         in,
		dec:        newLineDecoder(in),
		out:        w,
		enc:        json.NewEncoder(w),
		consumeCh:  make(chan Message, 64),
		shutdownCh: make(chan struct{}),
	}
}

// Listen implements the Transport interface.
func (s *StdioTransport) Listen() {
	defer close(s.consumeCh)

	for {
		var msg Message
		err := s.dec.Decode(&msg)
		if isBadLine(err) {
			s.logger.WithError(err).Warn("Skipping malformed message")
			continue
		}
		if err != nil {
			if err != io.EOF && !s.IsShutdown() {
				s.logger.WithField("error", err).Error("Failed to read incoming message")
			}
			return
		}

		select {
		case s.consumeCh <- msg:
		case <-s.shutdownCh:
			return
		}
	}
}

// Consumer implements the Transport interface.
func (s *StdioTransport) Consumer() <-chan Message {
	return s.consumeCh
}

// LocalAddr implements the Transport interface.
func (s *StdioTransport) LocalAddr() string {
	return "stdio"
}

// AdvertiseAddr implements the Transport interface.
func (s *StdioTransport) AdvertiseAddr() string {
	return "stdio"
}

// Send implements the Transport interface. Writes are serialized so that
// concurrent senders never interleave lines.
func (s *StdioTransport) Send(msg Message) error {
	if s.IsShutdown() {
		return ErrTransportShutdown
	}

	s.sendLock.Lock()
	defer s.sendLock.Unlock()

	if err := s.enc.Encode(&msg); err != nil {
		return err
	}
	return s.out.Flush()
}

// IsShutdown is used to check if the transport is shutdown.
func (s *StdioTransport) IsShutdown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// Close implements the Transport interface. If the input implements io.Closer
// it is closed too, which unblocks Listen.
func (s *StdioTransport) Close() error {
	s.shutdownLock.Lock()
	defer s.shutdownLock.Unlock()

	if !s.shutdown {
		close(s.shutdownCh)
		s.shutdown = true

		if c, ok := s.in.(io.Closer); ok {
			return c.Close()
		}
	}
	return nil
}
