// Package nodetest builds in-memory murmur clusters for tests.
package nodetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
)

// ClientID is the id of the node used by tests to talk to the cluster.
const ClientID = "c1"

// Cluster is a set of nodes connected through in-memory transports. Members
// take part in the algorithms, services (like lin-kv) are only addressable.
type Cluster struct {
	t          testing.TB
	Members    []string
	Nodes      map[string]*node.Node
	Transports map[string]*net.InmemTransport
	Client     *node.Node
}

// NewCluster creates and starts one node per member, per service, and a client
// node. Members are not initialised: register handlers, then call Init.
func NewCluster(t testing.TB, members []string, services ...string) *Cluster {
	c := &Cluster{
		t:          t,
		Members:    members,
		Nodes:      make(map[string]*node.Node),
		Transports: make(map[string]*net.InmemTransport),
	}

	ids := append(append(append([]string{}, members...), services...), ClientID)

	for _, id := range ids {
		_, trans := net.NewInmemTransport(id)
		c.Transports[id] = trans
		c.Nodes[id] = node.NewNode(node.TestConfig(t), trans)
	}

	for _, a := range ids {
		for _, b := range ids {
			if a != b {
				c.Transports[a].Connect(b, c.Transports[b])
			}
		}
	}

	for _, id := range ids {
		c.Nodes[id].RunAsync()
	}

	for _, id := range append(append([]string{}, services...), ClientID) {
		if err := c.Nodes[id].Init(id, nil); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	c.Client = c.Nodes[ClientID]

	return c
}

// Node returns the node with the given id.
func (c *Cluster) Node(id string) *node.Node {
	n, ok := c.Nodes[id]
	if !ok {
		c.t.Fatalf("no node %s", id)
	}
	return n
}

// Init sends an init message to every member and waits for init_ok.
func (c *Cluster) Init() {
	for _, id := range c.Members {
		resp := c.RPC(id, node.InitRequest{
			Type:    node.InitType,
			NodeID:  id,
			NodeIDs: c.Members,
		})
		if typ := resp.Type(); typ != "init_ok" {
			c.t.Fatalf("%s replied %s to init", id, typ)
		}
	}
}

// RPC sends body from the client to dest and fails the test if no reply
// arrives or the reply is an error.
func (c *Cluster) RPC(dest string, body interface{}) net.Message {
	resp, err := c.TryRPC(dest, body)
	if err != nil {
		c.t.Fatalf("rpc to %s: %v", dest, err)
	}
	return resp
}

// TryRPC sends body from the client to dest and returns the reply.
func (c *Cluster) TryRPC(dest string, body interface{}) (net.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Client.RPC(ctx, dest, body)
}

// Partition cuts the links between a and b in both directions.
func (c *Cluster) Partition(a, b string) {
	c.Transports[a].Disconnect(b)
	c.Transports[b].Disconnect(a)
}

// Heal restores the links between a and b.
func (c *Cluster) Heal(a, b string) {
	c.Transports[a].Connect(b, c.Transports[b])
	c.Transports[b].Connect(a, c.Transports[a])
}

// Shutdown stops every node of the cluster.
func (c *Cluster) Shutdown() {
	for _, n := range c.Nodes {
		n.Shutdown()
	}
}

// Eventually retries cond every 10ms until it returns true or timeout
// expires.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, format string, args ...interface{}) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: %s", fmt.Sprintf(format, args...))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
