package murmur

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/sirupsen/logrus"
)

// CallerID is the node id used by Call.
const CallerID = "c1"

// Call sends a single request to node dest, listening at addr, and returns its
// reply. The caller listens on bindAddr, which must be reachable from dest.
// Error replies are returned as *common.RPCError.
func Call(ctx context.Context,
	bindAddr string,
	dest string,
	addr string,
	body json.RawMessage,
	timeout time.Duration,
	logger *logrus.Logger) (net.Message, error) {

	trans, err := net.NewTCPTransport(bindAddr, "", 1, timeout, logger.WithField("prefix", "call"))
	if err != nil {
		return net.Message{}, err
	}
	trans.SetPeerAddr(dest, addr)

	n := node.NewNode(node.NewConfig(timeout, logger), trans)
	defer n.Shutdown()

	if err := n.Init(CallerID, nil); err != nil {
		return net.Message{}, err
	}
	n.RunAsync()

	var req map[string]interface{}
	if err := json.Unmarshal(body, &req); err != nil {
		return net.Message{}, err
	}

	return n.RPC(ctx, dest, req)
}
