package peers

// Peer is a node of the cluster and the address where it can be reached.
type Peer struct {
	ID      string
	NetAddr string
	Service bool `json:",omitempty"`
}

// NewPeer ...
func NewPeer(id, netAddr string) *Peer {
	return &Peer{
		ID:      id,
		NetAddr: netAddr,
	}
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, id string) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.ID != id {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
