package peers

import (
	"io/ioutil"
	"os"
	"reflect"
	"testing"
)

func TestJSONPeers(t *testing.T) {
	// Create a test dir
	dir, err := ioutil.TempDir("", "murmur")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	// Create the store
	store := NewJSONPeers(dir)

	// Try a read, should get nothing
	peerSet, err := store.PeerSet()
	if err == nil {
		t.Fatalf("store.PeerSet() should generate an error")
	}
	if peerSet != nil {
		t.Fatalf("peers: %v", peerSet)
	}

	newPeerSet := NewPeerSet([]*Peer{
		NewPeer("n2", "127.0.0.1:1338"),
		NewPeer("n1", "127.0.0.1:1337"),
		{ID: "lin-kv", NetAddr: "127.0.0.1:1339", Service: true},
	})

	if err := store.SetPeerSet(newPeerSet); err != nil {
		t.Fatalf("err: %v", err)
	}

	peerSet, err = store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(peerSet.Peers, newPeerSet.Peers) {
		t.Fatalf("peers should be %#v, not %#v", newPeerSet.Peers, peerSet.Peers)
	}

	if ids := peerSet.IDs(); !reflect.DeepEqual(ids, []string{"n1", "n2"}) {
		t.Fatalf("member ids should be [n1 n2], not %v", ids)
	}

	if p, ok := peerSet.ByID["lin-kv"]; !ok || p.NetAddr != "127.0.0.1:1339" {
		t.Fatalf("lin-kv should be addressable")
	}
}

func TestExcludePeer(t *testing.T) {
	peers := []*Peer{NewPeer("n1", ""), NewPeer("n2", ""), NewPeer("n3", "")}

	index, others := ExcludePeer(peers, "n2")
	if index != 1 {
		t.Fatalf("index should be 1, not %d", index)
	}

	if len(others) != 2 || others[0].ID != "n1" || others[1].ID != "n3" {
		t.Fatalf("unexpected remaining peers: %v", others)
	}
}
