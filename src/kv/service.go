package kv

import (
	"context"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/sirupsen/logrus"
)

// Service answers read, write and cas requests from a Store.
type Service struct {
	store  Store
	node   *node.Node
	logger *logrus.Entry
}

// NewService registers the store handlers on n.
func NewService(n *node.Node, store Store, logger *logrus.Entry) *Service {
	s := &Service{
		store:  store,
		node:   n,
		logger: logger,
	}

	n.Handle("read", s.handleRead)
	n.Handle("write", s.handleWrite)
	n.Handle("cas", s.handleCAS)

	return s
}

func (s *Service) handleRead(msg net.Message) error {
	var req ReadRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	v, err := s.store.Get(context.Background(), req.Key)
	if err != nil {
		return err
	}

	return s.node.Reply(msg, ReadResponse{Type: "read_ok", Value: v})
}

func (s *Service) handleWrite(msg net.Message) error {
	var req WriteRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	if err := s.store.Put(context.Background(), req.Key, req.Value); err != nil {
		return err
	}

	return s.node.Reply(msg, OKResponse{Type: "write_ok"})
}

func (s *Service) handleCAS(msg net.Message) error {
	var req CASRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	err := s.store.CompareAndSwap(context.Background(), req.Key, req.From, req.To, req.CreateIfNotExists)
	if err != nil {
		s.logger.WithError(err).WithField("key", req.Key).Debug("cas")
		return err
	}

	return s.node.Reply(msg, OKResponse{Type: "cas_ok"})
}
