package murmur

import (
	"encoding/json"
	"fmt"

	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
)

// Roles.
const (
	EchoRole      = "echo"
	UniqueIDsRole = "unique-ids"
	BroadcastRole = "broadcast"
	CounterRole   = "counter"
	KafkaRole     = "kafka"
	KafkaKVRole   = "kafka-kv"
	TxnRole       = "txn"
	SeqKVRole     = "seq-kv"
	LinKVRole     = "lin-kv"
)

// Roles lists every role a node can play.
var Roles = []string{
	EchoRole,
	UniqueIDsRole,
	BroadcastRole,
	CounterRole,
	KafkaRole,
	KafkaKVRole,
	TxnRole,
	SeqKVRole,
	LinKVRole,
}

// registerEcho answers echo requests with the same body, typed echo_ok.
func registerEcho(n *node.Node) {
	n.Handle("echo", func(msg net.Message) error {
		body := make(map[string]json.RawMessage)
		if err := msg.Decode(&body); err != nil {
			return err
		}

		delete(body, "msg_id")
		body["type"] = json.RawMessage(`"echo_ok"`)

		return n.Reply(msg, body)
	})
}

// GenerateResponse ...
type GenerateResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// registerUniqueIDs answers generate requests with an id made of the node id
// and a fresh message id. Message ids are never reused by a node, and node ids
// are unique in the cluster.
func registerUniqueIDs(n *node.Node) {
	n.Handle("generate", func(msg net.Message) error {
		return n.Reply(msg, GenerateResponse{
			Type: "generate_ok",
			ID:   fmt.Sprintf("%s-%d", n.ID(), n.NextMsgID()),
		})
	})
}
