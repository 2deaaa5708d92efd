package broadcast

import (
	"sort"
	"sync"
	"time"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/sirupsen/logrus"
)

// DefaultGossipInterval is the period of the gossip loop.
const DefaultGossipInterval = 300 * time.Millisecond

// Broadcaster is the broadcast role of a node.
type Broadcaster struct {
	node     *node.Node
	interval time.Duration
	logger   *logrus.Entry

	seenLock sync.Mutex
	seen     map[uint64]struct{}

	neighborsLock sync.Mutex
	neighbors     []string
	started       bool
}

// NewBroadcaster registers the broadcast handlers on n.
func NewBroadcaster(n *node.Node, interval time.Duration, logger *logrus.Entry) *Broadcaster {
	if interval <= 0 {
		interval = DefaultGossipInterval
	}

	b := &Broadcaster{
		node:     n,
		interval: interval,
		logger:   logger,
		seen:     make(map[uint64]struct{}),
	}

	n.Handle("broadcast", b.handleBroadcast)
	n.Handle("read", b.handleRead)
	n.Handle("topology", b.handleTopology)
	n.Handle("gossip", b.handleGossip)

	return b
}

// Broadcast adds value to the seen set. It returns false if value was already
// there.
func (b *Broadcaster) Broadcast(value uint64) bool {
	b.seenLock.Lock()
	defer b.seenLock.Unlock()

	if _, ok := b.seen[value]; ok {
		return false
	}
	b.seen[value] = struct{}{}
	return true
}

// ReceiveGossip merges a peer's seen set into ours.
func (b *Broadcaster) ReceiveGossip(seen []uint64) int {
	b.seenLock.Lock()
	defer b.seenLock.Unlock()

	added := 0
	for _, v := range seen {
		if _, ok := b.seen[v]; !ok {
			b.seen[v] = struct{}{}
			added++
		}
	}
	return added
}

// Read returns the seen set in increasing order.
func (b *Broadcaster) Read() []uint64 {
	b.seenLock.Lock()
	res := make([]uint64, 0, len(b.seen))
	for v := range b.seen {
		res = append(res, v)
	}
	b.seenLock.Unlock()

	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res
}

// SetNeighbors records the neighbors of this node and starts the gossip loop.
// Only the first call has an effect.
func (b *Broadcaster) SetNeighbors(neighbors []string) bool {
	b.neighborsLock.Lock()
	defer b.neighborsLock.Unlock()

	if b.started {
		return false
	}

	b.neighbors = append([]string{}, neighbors...)
	b.started = true

	b.node.Every(b.interval, b.gossip)

	return true
}

// Neighbors returns the nodes we gossip with.
func (b *Broadcaster) Neighbors() []string {
	b.neighborsLock.Lock()
	defer b.neighborsLock.Unlock()
	return append([]string{}, b.neighbors...)
}

// gossip sends the seen set to every neighbor. Send errors are only logged; the
// next round carries the same information again.
func (b *Broadcaster) gossip() {
	msg := GossipMessage{
		Type: "gossip",
		Seen: b.Read(),
	}

	for _, neighbor := range b.Neighbors() {
		if err := b.node.Send(neighbor, msg); err != nil {
			b.logger.WithError(err).WithField("neighbor", neighbor).Debug("gossip")
		}
	}
}

func (b *Broadcaster) handleBroadcast(msg net.Message) error {
	var req BroadcastRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	b.Broadcast(req.Message)

	return b.node.Reply(msg, OKResponse{Type: "broadcast_ok"})
}

func (b *Broadcaster) handleRead(msg net.Message) error {
	return b.node.Reply(msg, ReadResponse{
		Type:     "read_ok",
		Messages: b.Read(),
	})
}

func (b *Broadcaster) handleTopology(msg net.Message) error {
	var req TopologyRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	id := b.node.ID()
	neighbors, ok := req.Topology[id]
	if !ok {
		b.logger.WithField("id", id).Warn("Topology does not list this node")
	}

	if b.SetNeighbors(neighbors) {
		b.logger.WithField("neighbors", neighbors).Debug("Starting gossip")
	} else {
		b.logger.Debug("Ignoring topology update")
	}

	return b.node.Reply(msg, OKResponse{Type: "topology_ok"})
}

func (b *Broadcaster) handleGossip(msg net.Message) error {
	var g GossipMessage
	if err := msg.Decode(&g); err != nil {
		b.logger.WithError(err).WithField("src", msg.Src).Debug("gossip")
		return nil
	}

	if added := b.ReceiveGossip(g.Seen); added > 0 {
		b.logger.WithFields(logrus.Fields{
			"src":   msg.Src,
			"added": added,
		}).Debug("gossip")
	}

	return nil
}
