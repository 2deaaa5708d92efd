package peers

import (
	"bytes"
	"encoding/json"
	"sort"
)

// PeerSet is the set of nodes forming a cluster, sorted by id.
type PeerSet struct {
	Peers []*Peer          `json:"peers"`
	ByID  map[string]*Peer `json:"-"`
}

/* Constructors */

// NewPeerSet creates a new PeerSet from a list of Peers
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByID: make(map[string]*Peer),
	}

	sorted := make([]*Peer, 0, len(peers))
	for _, peer := range peers {
		if _, ok := peerSet.ByID[peer.ID]; ok {
			continue
		}
		peerSet.ByID[peer.ID] = peer
		sorted = append(sorted, peer)
	}

	sort.Sort(ByID(sorted))

	peerSet.Peers = sorted

	return peerSet
}

// NewPeerSetFromPeerSliceBytes creates a new PeerSet from a JSON encoded slice
// of peers.
func NewPeerSetFromPeerSliceBytes(peerSliceBytes []byte) (*PeerSet, error) {
	peers := []*Peer{}

	dec := json.NewDecoder(bytes.NewReader(peerSliceBytes))

	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	return NewPeerSet(peers), nil
}

/* ToSlice Methods */

// IDs returns the ids of the cluster members, excluding services.
func (peerSet *PeerSet) IDs() []string {
	res := []string{}

	for _, peer := range peerSet.Peers {
		if !peer.Service {
			res = append(res, peer.ID)
		}
	}

	return res
}

/* Utilities */

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByID)
}

// Marshal marshals the peerset
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ByID implements sort.Interface for Peers based on the ID field.
type ByID []*Peer

func (a ByID) Len() int           { return len(a) }
func (a ByID) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByID) Less(i, j int) bool { return a[i].ID < a[j].ID }
