package node

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/net"
)

type echoRequest struct {
	Type string `json:"type"`
	Echo string `json:"echo"`
}

func initNodes(t *testing.T, ids ...string) map[string]*Node {
	transports := make(map[string]*net.InmemTransport)
	nodes := make(map[string]*Node)

	for _, id := range ids {
		_, trans := net.NewInmemTransport(id)
		transports[id] = trans
		nodes[id] = NewNode(TestConfig(t), trans)
	}

	for _, a := range ids {
		for _, b := range ids {
			if a != b {
				transports[a].Connect(b, transports[b])
			}
		}
	}

	for _, n := range nodes {
		n.RunAsync()
	}

	return nodes
}

func shutdownNodes(nodes map[string]*Node) {
	for _, n := range nodes {
		n.Shutdown()
	}
}

func TestInit(t *testing.T) {
	nodes := initNodes(t, "n1", "c1")
	defer shutdownNodes(nodes)

	client := nodes["c1"]
	if err := client.Init("c1", nil); err != nil {
		t.Fatalf("err: %v", err)
	}

	hookCalls := int32(0)
	var hookID string
	nodes["n1"].OnInit(func() error {
		atomic.AddInt32(&hookCalls, 1)
		hookID = nodes["n1"].ID()
		return nil
	})

	if s := nodes["n1"].GetState(); s != Initialising {
		t.Fatalf("state should be Initialising, not %v", s)
	}

	resp, err := client.RPC(context.Background(), "n1", InitRequest{
		Type:    InitType,
		NodeID:  "n1",
		NodeIDs: []string{"n1", "n2", "n3"},
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if typ := resp.Type(); typ != "init_ok" {
		t.Fatalf("reply type should be init_ok, not %s", typ)
	}

	n1 := nodes["n1"]

	if id := n1.ID(); id != "n1" {
		t.Fatalf("ID should be n1, not %s", id)
	}

	if ids := n1.NodeIDs(); !reflect.DeepEqual(ids, []string{"n1", "n2", "n3"}) {
		t.Fatalf("NodeIDs should be [n1 n2 n3], not %v", ids)
	}

	if others := n1.OtherNodeIDs(); !reflect.DeepEqual(others, []string{"n2", "n3"}) {
		t.Fatalf("OtherNodeIDs should be [n2 n3], not %v", others)
	}

	if c := atomic.LoadInt32(&hookCalls); c != 1 || hookID != "n1" {
		t.Fatalf("init hook should run once after the id is set, got %d calls, id %q", c, hookID)
	}

	if s := n1.GetState(); s != Running {
		t.Fatalf("state should be Running, not %v", s)
	}

	// membership is immutable
	_, err = client.RPC(context.Background(), "n1", InitRequest{
		Type:   InitType,
		NodeID: "n9",
	})
	if !common.IsRPC(err, common.PreconditionFailed) {
		t.Fatalf("second init should fail with PreconditionFailed, not %v", err)
	}

	if id := n1.ID(); id != "n1" {
		t.Fatalf("ID should still be n1, not %s", id)
	}
}

func TestRPC(t *testing.T) {
	nodes := initNodes(t, "n1", "c1")
	defer shutdownNodes(nodes)

	nodes["n1"].Init("n1", []string{"n1"})
	nodes["c1"].Init("c1", nil)

	nodes["n1"].Handle("echo", func(msg net.Message) error {
		var req echoRequest
		if err := msg.Decode(&req); err != nil {
			return err
		}
		return nodes["n1"].Reply(msg, echoRequest{Type: "echo_ok", Echo: req.Echo})
	})

	resp, err := nodes["c1"].RPC(context.Background(), "n1", echoRequest{Type: "echo", Echo: "hello"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var out echoRequest
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("err: %v", err)
	}

	if out.Type != "echo_ok" || out.Echo != "hello" {
		t.Fatalf("unexpected reply %#v", out)
	}

	header, err := resp.Header()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if header.MsgID == 0 || header.InReplyTo == 0 {
		t.Fatalf("reply should carry msg_id and in_reply_to: %#v", header)
	}

	if resp.Src != "n1" || resp.Dest != "c1" {
		t.Fatalf("reply should go from n1 to c1, not %s to %s", resp.Src, resp.Dest)
	}
}

func TestRPC_ErrorReply(t *testing.T) {
	nodes := initNodes(t, "n1", "c1")
	defer shutdownNodes(nodes)

	nodes["n1"].Init("n1", []string{"n1"})
	nodes["c1"].Init("c1", nil)

	nodes["n1"].Handle("read", func(msg net.Message) error {
		return common.NewRPCError(common.KeyDoesNotExist, "key %d does not exist", 7)
	})

	_, err := nodes["c1"].RPC(context.Background(), "n1", OKResponse{Type: "read"})
	if !common.IsRPC(err, common.KeyDoesNotExist) {
		t.Fatalf("err should be KeyDoesNotExist, not %v", err)
	}

	if text := err.(*common.RPCError).Text; text != "key 7 does not exist" {
		t.Fatalf("unexpected error text %q", text)
	}
}

func TestRPC_Timeout(t *testing.T) {
	nodes := initNodes(t, "n1", "c1")
	defer shutdownNodes(nodes)

	nodes["n1"].Init("n1", []string{"n1"})
	nodes["c1"].Init("c1", nil)

	// gossip-like messages are never answered
	nodes["n1"].Handle("gossip", func(msg net.Message) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := nodes["c1"].RPC(ctx, "n1", OKResponse{Type: "gossip"})
	if !common.IsRPC(err, common.Timeout) {
		t.Fatalf("err should be Timeout, not %v", err)
	}

	if p := nodes["c1"].GetStats()["pending_rpcs"]; p != "0" {
		t.Fatalf("timed out rpcs should not stay pending, got %s", p)
	}
}

func TestRPC_UnknownType(t *testing.T) {
	nodes := initNodes(t, "n1", "c1")
	defer shutdownNodes(nodes)

	nodes["n1"].Init("n1", []string{"n1"})
	nodes["c1"].Init("c1", nil)

	start := time.Now()
	_, err := nodes["c1"].RPC(context.Background(), "n1", OKResponse{Type: "frobnicate"})
	if !common.IsRPC(err, common.NotSupported) {
		t.Fatalf("err should be NotSupported, not %v", err)
	}
	if time.Since(start) >= nodes["c1"].conf.RPCTimeout {
		t.Fatalf("unknown types should be rejected before the rpc times out")
	}

	if u := nodes["n1"].GetStats()["unhandled"]; u != "1" {
		t.Fatalf("unhandled should be 1, not %s", u)
	}

	// fire-and-forget messages of an unknown type get an error too, which the
	// sender drops as an unmatched reply
	if err := nodes["c1"].Send("n1", OKResponse{Type: "frobnicate"}); err != nil {
		t.Fatalf("err: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for nodes["c1"].GetStats()["dropped_replies"] != "1" {
		if time.Now().After(deadline) {
			t.Fatalf("dropped_replies should be 1, not %s", nodes["c1"].GetStats()["dropped_replies"])
		}
		time.Sleep(10 * time.Millisecond)
	}

	if u := nodes["c1"].GetStats()["unhandled"]; u != "0" {
		t.Fatalf("the error reply should not be processed as a request, unhandled = %s", u)
	}
}

func TestRPC_NestedInHandler(t *testing.T) {
	nodes := initNodes(t, "n1", "n2", "c1")
	defer shutdownNodes(nodes)

	nodes["n1"].Init("n1", []string{"n1", "n2"})
	nodes["n2"].Init("n2", []string{"n1", "n2"})
	nodes["c1"].Init("c1", nil)

	nodes["n2"].Handle("echo", func(msg net.Message) error {
		var req echoRequest
		msg.Decode(&req)
		return nodes["n2"].Reply(msg, echoRequest{Type: "echo_ok", Echo: req.Echo + "/n2"})
	})

	nodes["n1"].Handle("echo", func(msg net.Message) error {
		var req echoRequest
		msg.Decode(&req)

		resp, err := nodes["n1"].RPC(context.Background(), "n2", echoRequest{Type: "echo", Echo: req.Echo + "/n1"})
		if err != nil {
			return err
		}

		var out echoRequest
		resp.Decode(&out)

		return nodes["n1"].Reply(msg, out)
	})

	resp, err := nodes["c1"].RPC(context.Background(), "n1", echoRequest{Type: "echo", Echo: "c1"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	var out echoRequest
	resp.Decode(&out)

	if out.Echo != "c1/n1/n2" {
		t.Fatalf("echo should be c1/n1/n2, not %s", out.Echo)
	}
}

func TestUnmatchedReplyDropped(t *testing.T) {
	nodes := initNodes(t, "n1", "c1")
	defer shutdownNodes(nodes)

	nodes["n1"].Init("n1", []string{"n1"})
	nodes["c1"].Init("c1", nil)

	if err := nodes["c1"].send("n1", OKResponse{Type: "read_ok"}, 0, 999); err != nil {
		t.Fatalf("err: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for nodes["n1"].GetStats()["dropped_replies"] != "1" {
		if time.Now().After(deadline) {
			t.Fatalf("reply to unknown request should be dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEvery(t *testing.T) {
	nodes := initNodes(t, "n1")

	ticks := int32(0)
	nodes["n1"].Every(5*time.Millisecond, func() {
		atomic.AddInt32(&ticks, 1)
	})

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&ticks) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Every should tick repeatedly, got %d ticks", atomic.LoadInt32(&ticks))
		}
		time.Sleep(5 * time.Millisecond)
	}

	shutdownNodes(nodes)

	after := atomic.LoadInt32(&ticks)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&ticks) != after {
		t.Fatalf("Every should stop on shutdown")
	}
}

func TestEncodeBody(t *testing.T) {
	raw, err := encodeBody(echoRequest{Type: "echo", Echo: "x"}, 4, 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	expected := `{"echo":"x","in_reply_to":2,"msg_id":4,"type":"echo"}`
	if string(raw) != expected {
		t.Fatalf("body should be %s, not %s", expected, raw)
	}

	if _, err := encodeBody([]int{1}, 1, 0); err == nil {
		t.Fatalf("non-object bodies should be rejected")
	}
}
