package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/mosaicnetworks/murmur/src/peers"
)

func TestService(t *testing.T) {
	_, trans := net.NewInmemTransport("n1")
	n := node.NewNode(node.TestConfig(t), trans)
	if err := n.Init("n1", []string{"n1", "n2"}); err != nil {
		t.Fatalf("err: %v", err)
	}
	defer n.Shutdown()

	logger := common.NewTestEntry(t, common.TestLogLevel)

	s := NewService("", n, nil, logger)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("/stats should return 200, not %d", rec.Code)
	}

	var stats map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("err: %v", err)
	}

	if stats["id"] != "n1" || stats["state"] != "Running" {
		t.Fatalf("unexpected stats %v", stats)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peers", nil))

	var ps []*peers.Peer
	if err := json.NewDecoder(rec.Body).Decode(&ps); err != nil {
		t.Fatalf("err: %v", err)
	}

	if len(ps) != 2 || ps[0].ID != "n1" || ps[1].ID != "n2" {
		t.Fatalf("/peers should list n1 and n2, got %v", ps)
	}

	peerSet := peers.NewPeerSet([]*peers.Peer{peers.NewPeer("n1", "127.0.0.1:1337")})
	s = NewService("", n, peerSet, logger)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peers", nil))

	ps = nil
	json.NewDecoder(rec.Body).Decode(&ps)

	if len(ps) != 1 || ps[0].NetAddr != "127.0.0.1:1337" {
		t.Fatalf("/peers should list the peer set, got %v", ps)
	}
}
