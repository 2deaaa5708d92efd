package broadcast

// BroadcastRequest ...
type BroadcastRequest struct {
	Type    string `json:"type"`
	Message uint64 `json:"message"`
}

// ReadResponse ...
type ReadResponse struct {
	Type     string   `json:"type"`
	Messages []uint64 `json:"messages"`
}

// TopologyRequest maps every node id to the ids of its neighbors.
type TopologyRequest struct {
	Type     string              `json:"type"`
	Topology map[string][]string `json:"topology"`
}

// GossipMessage carries the seen set of the sender. It is never answered.
type GossipMessage struct {
	Type string   `json:"type"`
	Seen []uint64 `json:"seen"`
}

// OKResponse is the body of broadcast_ok and topology_ok.
type OKResponse struct {
	Type string `json:"type"`
}
