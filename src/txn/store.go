package txn

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/sirupsen/logrus"
)

// Store is the transactional store role of a node.
type Store struct {
	node   *node.Node
	logger *logrus.Entry

	sync.Mutex
	data map[uint64]uint64
}

// NewStore registers the txn handlers on n.
func NewStore(n *node.Node, logger *logrus.Entry) *Store {
	s := &Store{
		node:   n,
		logger: logger,
		data:   make(map[uint64]uint64),
	}

	n.Handle("txn", s.handleTxn)
	n.Handle("sync", s.handleSync)

	return s
}

// ApplyTxn applies ops in order and returns them with the values of reads
// filled in, together with the writes to replicate. No operation is applied if
// one of them is malformed.
func (s *Store) ApplyTxn(ops []Op) ([]Op, map[uint64]uint64, error) {
	for _, op := range ops {
		if err := op.validate(); err != nil {
			return nil, nil, err
		}
	}

	s.Lock()
	defer s.Unlock()

	res := make([]Op, 0, len(ops))
	writes := make(map[uint64]uint64)

	for _, op := range ops {
		switch op.Kind {
		case Read:
			read := NewRead(op.Key)
			if v, ok := s.data[op.Key]; ok {
				read.Value = &v
			}
			res = append(res, read)
		case Write:
			s.data[op.Key] = *op.Value
			writes[op.Key] = *op.Value
			res = append(res, NewWrite(op.Key, *op.Value))
		}
	}

	return res, writes, nil
}

// ApplySync merges writes received from another node. The last write applied
// wins.
func (s *Store) ApplySync(changes map[uint64]uint64) {
	s.Lock()
	defer s.Unlock()

	for k, v := range changes {
		s.data[k] = v
	}
}

// Get returns the value of key and whether it exists.
func (s *Store) Get(key uint64) (uint64, bool) {
	s.Lock()
	defer s.Unlock()

	v, ok := s.data[key]
	return v, ok
}

// replicate sends writes to every other node, each from its own goroutine.
// Failures are logged and otherwise invisible: there is no retry.
func (s *Store) replicate(writes map[uint64]uint64) {
	if len(writes) == 0 {
		return
	}

	req := SyncRequest{Type: "sync", Changes: writes}

	for _, peer := range s.node.OtherNodeIDs() {
		peer := peer
		s.node.Go(func() {
			if _, err := s.node.RPC(context.Background(), peer, req); err != nil {
				s.logger.WithError(err).WithField("peer", peer).Debug("sync")
			}
		})
	}
}

func (s *Store) handleTxn(msg net.Message) error {
	var req TxnRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	res, writes, err := s.ApplyTxn(req.Txn)
	if err != nil {
		return err
	}

	s.replicate(writes)

	return s.node.Reply(msg, TxnRequest{Type: "txn_ok", Txn: res})
}

func (s *Store) handleSync(msg net.Message) error {
	var req SyncRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	s.ApplySync(req.Changes)

	return s.node.Reply(msg, OKResponse{Type: "sync_ok"})
}
