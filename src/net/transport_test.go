package net

import (
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
)

const (
	INMEM = iota
	TCP
	numTestTransports // NOTE: must be last
)

func NewTestTransport(ttype int, id string, t *testing.T) Transport {
	switch ttype {
	case INMEM:
		_, it := NewInmemTransport(id)
		return it
	case TCP:
		tt, err := NewTCPTransport("127.0.0.1:0", "", 2, time.Second, common.NewTestEntry(t, common.TestLogLevel))
		if err != nil {
			t.Fatal(err)
		}
		go tt.Listen()
		return tt
	default:
		panic("Unknown transport type")
	}
}

// connect makes 'to' reachable from 'from' under the node id 'toID'.
func connect(ttype int, from Transport, toID string, to Transport) {
	switch ttype {
	case INMEM:
		from.(*InmemTransport).Connect(toID, to)
	case TCP:
		from.(*NetworkTransport).SetPeerAddr(toID, to.AdvertiseAddr())
	}
}

type testBody struct {
	Type    string   `json:"type"`
	MsgID   int64    `json:"msg_id"`
	Message uint64   `json:"message"`
	Seen    []uint64 `json:"seen"`
}

func TestTransport_StartStop(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans := NewTestTransport(ttype, "n0", t)
		if err := trans.Close(); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
}

func TestTransport_Send(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans1 := NewTestTransport(ttype, "n1", t)
		defer trans1.Close()
		trans2 := NewTestTransport(ttype, "n2", t)
		defer trans2.Close()

		connect(ttype, trans2, "n1", trans1)

		msg, err := NewMessage("n2", "n1", testBody{
			Type:    "gossip",
			MsgID:   7,
			Message: 42,
			Seen:    []uint64{1, 2, 3},
		})
		if err != nil {
			t.Fatal(err)
		}

		if err := trans2.Send(msg); err != nil {
			t.Fatalf("err: %v", err)
		}

		select {
		case got := <-trans1.Consumer():
			if !reflect.DeepEqual(got, msg) {
				t.Fatalf("message mismatch: %#v %#v", got, msg)
			}
			if got.Type() != "gossip" {
				t.Fatalf("message type should be gossip, not %s", got.Type())
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout")
		}
	}
}

func TestTransport_UnknownDestination(t *testing.T) {
	for ttype := 0; ttype < numTestTransports; ttype++ {
		trans := NewTestTransport(ttype, "n1", t)
		defer trans.Close()

		msg, _ := NewMessage("n1", "nowhere", testBody{Type: "read"})
		if err := trans.Send(msg); err == nil {
			t.Fatalf("sending to an unknown node should fail")
		}
	}
}

func TestTCPTransport_LearnsSenderAddress(t *testing.T) {
	trans1 := NewTestTransport(TCP, "n1", t).(*NetworkTransport)
	defer trans1.Close()
	client := NewTestTransport(TCP, "c1", t).(*NetworkTransport)
	defer client.Close()

	// Only the client knows where the node lives.
	client.SetPeerAddr("n1", trans1.AdvertiseAddr())

	req, _ := NewMessage("c1", "n1", testBody{Type: "read", MsgID: 1})
	if err := client.Send(req); err != nil {
		t.Fatalf("err: %v", err)
	}

	var got Message
	select {
	case got = <-trans1.Consumer():
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}

	addr, ok := trans1.PeerAddr("c1")
	if !ok || addr != client.AdvertiseAddr() {
		t.Fatalf("c1 address should be %s, not %s", client.AdvertiseAddr(), addr)
	}

	resp, _ := NewMessage("n1", got.Src, testBody{Type: "read_ok"})
	if err := trans1.Send(resp); err != nil {
		t.Fatalf("err: %v", err)
	}

	select {
	case r := <-client.Consumer():
		if r.Type() != "read_ok" {
			t.Fatalf("reply type should be read_ok, not %s", r.Type())
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
}

func TestInmemTransport_Disconnect(t *testing.T) {
	_, trans1 := NewInmemTransport("n1")
	_, trans2 := NewInmemTransport("n2")
	defer trans1.Close()
	defer trans2.Close()

	trans2.Connect("n1", trans1)

	msg, _ := NewMessage("n2", "n1", testBody{Type: "gossip"})
	if err := trans2.Send(msg); err != nil {
		t.Fatalf("err: %v", err)
	}

	trans2.Disconnect("n1")

	if err := trans2.Send(msg); err == nil {
		t.Fatalf("sending to a disconnected peer should fail")
	}
}

func TestMessage_RPCError(t *testing.T) {
	msg, _ := NewMessage("lin-kv", "n1", MessageBody{
		Type:      ErrorType,
		InReplyTo: 3,
		Code:      int(common.PreconditionFailed),
		Text:      "current value 4 is not 3",
	})

	rpcErr := msg.RPCError()
	if rpcErr == nil {
		t.Fatalf("error body should decode to an RPCError")
	}

	if rpcErr.Code != common.PreconditionFailed {
		t.Fatalf("code should be %d, not %d", common.PreconditionFailed, rpcErr.Code)
	}

	ok, _ := NewMessage("lin-kv", "n1", MessageBody{Type: "cas_ok", InReplyTo: 3})
	if ok.RPCError() != nil {
		t.Fatalf("cas_ok should not decode to an RPCError")
	}
}
