package commitlog

import (
	"context"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/sirupsen/logrus"
)

// Server answers the log requests received by a node from a Log.
type Server struct {
	node   *node.Node
	log    Log
	logger *logrus.Entry
}

// NewServer registers the log handlers on n.
func NewServer(n *node.Node, log Log, logger *logrus.Entry) *Server {
	s := &Server{
		node:   n,
		log:    log,
		logger: logger,
	}

	n.Handle("send", s.handleSend)
	n.Handle("poll", s.handlePoll)
	n.Handle("commit_offsets", s.handleCommitOffsets)
	n.Handle("list_committed_offsets", s.handleListCommittedOffsets)

	return s
}

func (s *Server) handleSend(msg net.Message) error {
	var req SendRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	offset, err := s.log.Send(context.Background(), req.Key, req.Msg)
	if err != nil {
		s.logger.WithError(err).WithField("key", req.Key).Error("send")
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"key":    req.Key,
		"offset": offset,
	}).Debug("send")

	return s.node.Reply(msg, SendResponse{Type: "send_ok", Offset: offset})
}

func (s *Server) handlePoll(msg net.Message) error {
	var req OffsetsRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	msgs, err := s.log.Poll(context.Background(), req.Offsets)
	if err != nil {
		return err
	}

	return s.node.Reply(msg, PollResponse{Type: "poll_ok", Msgs: msgs})
}

func (s *Server) handleCommitOffsets(msg net.Message) error {
	var req OffsetsRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	if err := s.log.CommitOffsets(context.Background(), req.Offsets); err != nil {
		return err
	}

	return s.node.Reply(msg, OKResponse{Type: "commit_offsets_ok"})
}

func (s *Server) handleListCommittedOffsets(msg net.Message) error {
	var req ListCommittedOffsetsRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	offsets, err := s.log.ListCommittedOffsets(context.Background(), req.Keys)
	if err != nil {
		return err
	}

	return s.node.Reply(msg, OffsetsResponse{Type: "list_committed_offsets_ok", Offsets: offsets})
}
