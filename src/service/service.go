package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
)

// Service exposes the state of a node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	node        *node.Node
	peers       *peers.PeerSet
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ... peerSet may be nil, in which case /peers lists the node ids
// learned at init.
func NewService(bindAddress string, n *node.Node, peerSet *peers.PeerSet, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		peers:       peerSet,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering murmur API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/peers", s.makeHandler(s.GetPeers))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the http.Handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving murmur API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	var res []*peers.Peer
	if s.peers != nil {
		res = s.peers.Peers
	} else {
		for _, id := range s.node.NodeIDs() {
			res = append(res, peers.NewPeer(id, ""))
		}
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(res)
}
