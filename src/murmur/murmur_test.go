package murmur

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/config"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/peers"
)

type stdioHarness struct {
	t      *testing.T
	engine *Murmur
	in     *io.PipeWriter
	dec    *json.Decoder
	done   chan struct{}
}

func newStdioHarness(t *testing.T, role string) *stdioHarness {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.Role = role
	conf.Stdin = inR
	conf.Stdout = outW

	engine := NewMurmur(conf)
	if err := engine.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	h := &stdioHarness{
		t:      t,
		engine: engine,
		in:     inW,
		dec:    json.NewDecoder(outR),
		done:   make(chan struct{}),
	}

	go func() {
		engine.Run()
		outW.Close()
		close(h.done)
	}()

	return h
}

func (h *stdioHarness) send(src string, body string) {
	line := `{"src":"` + src + `","dest":"n1","body":` + body + "}\n"
	if _, err := h.in.Write([]byte(line)); err != nil {
		h.t.Fatalf("write: %v", err)
	}
}

func (h *stdioHarness) recv() (net.Message, map[string]interface{}) {
	var msg net.Message
	if err := h.dec.Decode(&msg); err != nil {
		h.t.Fatalf("decode: %v", err)
	}
	body := make(map[string]interface{})
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		h.t.Fatalf("body: %v", err)
	}
	return msg, body
}

func (h *stdioHarness) close() {
	h.in.Close()
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		h.t.Fatalf("engine did not stop after stdin was closed")
	}
}

func (h *stdioHarness) init() {
	h.send("c0", `{"type":"init","msg_id":1,"node_id":"n1","node_ids":["n1"]}`)
	msg, body := h.recv()
	if msg.Dest != "c0" || body["type"] != "init_ok" || body["in_reply_to"] != float64(1) {
		h.t.Fatalf("bad init reply: %s", msg.Body)
	}
}

func TestEcho(t *testing.T) {
	h := newStdioHarness(t, EchoRole)
	defer h.close()

	h.init()

	h.send("c1", `{"type":"echo","msg_id":2,"echo":"hello there"}`)

	msg, body := h.recv()
	if msg.Src != "n1" || msg.Dest != "c1" {
		t.Fatalf("bad envelope: %+v", msg)
	}
	if body["type"] != "echo_ok" {
		t.Fatalf("type should be echo_ok, not %v", body["type"])
	}
	if body["echo"] != "hello there" {
		t.Fatalf("echo should be 'hello there', not %v", body["echo"])
	}
	if body["in_reply_to"] != float64(2) {
		t.Fatalf("in_reply_to should be 2, not %v", body["in_reply_to"])
	}
}

func TestUniqueIDs(t *testing.T) {
	h := newStdioHarness(t, UniqueIDsRole)
	defer h.close()

	h.init()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		h.send("c1", `{"type":"generate","msg_id":`+strconv.Itoa(i+2)+`}`)
		_, body := h.recv()
		if body["type"] != "generate_ok" {
			t.Fatalf("bad reply: %v", body)
		}
		id, _ := body["id"].(string)
		if id == "" || seen[id] {
			t.Fatalf("id %q is empty or duplicated", id)
		}
		seen[id] = true
	}
}

func TestUnknownRole(t *testing.T) {
	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.Role = "paxos"
	conf.Stdin = strings.NewReader("")
	conf.Stdout = ioutil.Discard

	if err := NewMurmur(conf).Init(); err == nil {
		t.Fatalf("Init should fail for an unknown role")
	}
}

func TestTCPCall(t *testing.T) {
	dir, err := ioutil.TempDir("", "murmur")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	peerSet := peers.NewPeerSet([]*peers.Peer{peers.NewPeer("n1", "127.0.0.1:0")})
	if err := peers.NewJSONPeers(dir).SetPeerSet(peerSet); err != nil {
		t.Fatal(err)
	}

	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.SetDataDir(dir)
	conf.Role = TxnRole
	conf.Transport = config.TCPTransport
	conf.ID = "n1"
	conf.BindAddr = "127.0.0.1:0"
	conf.NoService = true

	engine := NewMurmur(conf)
	if err := engine.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	done := make(chan struct{})
	go func() {
		engine.Run()
		close(done)
	}()
	defer func() {
		engine.Shutdown()
		<-done
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := Call(ctx,
		"127.0.0.1:0",
		"n1",
		engine.Transport.AdvertiseAddr(),
		json.RawMessage(`{"type":"txn","txn":[["w",1,7],["r",1,null]]}`),
		time.Second,
		conf.Logger(),
	)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	var body struct {
		Type string          `json:"type"`
		Txn  [][]interface{} `json:"txn"`
	}
	if err := json.Unmarshal(reply.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Type != "txn_ok" || len(body.Txn) != 2 || body.Txn[1][2] != float64(7) {
		t.Fatalf("bad reply: %s", reply.Body)
	}

	if v, ok := engine.TxnStore.Get(1); !ok || v != 7 {
		t.Fatalf("key 1 should be 7, not %d (%v)", v, ok)
	}
}

func TestTCPMissingSelf(t *testing.T) {
	dir, err := ioutil.TempDir("", "murmur")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	peerSet := peers.NewPeerSet([]*peers.Peer{peers.NewPeer("n2", "127.0.0.1:1338")})
	if err := peers.NewJSONPeers(dir).SetPeerSet(peerSet); err != nil {
		t.Fatal(err)
	}

	conf := config.NewTestConfig(t, common.TestLogLevel)
	conf.SetDataDir(dir)
	conf.Transport = config.TCPTransport
	conf.ID = "n1"

	if err := NewMurmur(conf).Init(); err == nil {
		t.Fatalf("Init should fail when the node is not in %s", filepath.Join(dir, "peers.json"))
	}
}
