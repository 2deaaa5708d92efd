package net

import (
	"net"
	"testing"
	"time"
)

func TestTCPTransport_BadAddr(t *testing.T) {
	_, err := NewTCPTransport("0.0.0.0:0", "", 1, 0, nil)
	if err != errNotAdvertisable {
		t.Fatalf("err: %v", err)
	}

	_, err = NewTCPTransport("127.0.0.1:0", "0.0.0.0:1337", 1, 0, nil)
	if err != errNotAdvertisable {
		t.Fatalf("err: %v", err)
	}
}

func TestTCPTransport_WithAdvertise(t *testing.T) {
	trans, err := NewTCPTransport("0.0.0.0:0", "127.0.0.1:12345", 1, time.Second, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer trans.Close()

	if trans.AdvertiseAddr() != "127.0.0.1:12345" {
		t.Fatalf("bad: %v", trans.AdvertiseAddr())
	}
}

func TestTCPTransport_SkipsMalformedFrames(t *testing.T) {
	trans := NewTestTransport(TCP, "n1", t).(*NetworkTransport)
	defer trans.Close()

	conn, err := net.Dial("tcp", trans.AdvertiseAddr())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer conn.Close()

	frames := `{"from":"127.0.0.1:9","src":7,"dest":"n1","body":{"type":"read"}}` + "\n" +
		`garbage` + "\n" +
		`{"from":"127.0.0.1:9","src":"c1","dest":"n1","body":{"type":"read","msg_id":1}}` + "\n"
	if _, err := conn.Write([]byte(frames)); err != nil {
		t.Fatalf("err: %v", err)
	}

	select {
	case msg := <-trans.Consumer():
		if msg.Src != "c1" || msg.Type() != "read" {
			t.Fatalf("unexpected message: %#v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}

	if addr, ok := trans.PeerAddr("c1"); !ok || addr != "127.0.0.1:9" {
		t.Fatalf("c1 address should be 127.0.0.1:9, not %q", addr)
	}
}
