package node

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/sirupsen/logrus"
)

// InitType is the type of the message that tells a node who it is.
const InitType = "init"

// ErrShutdown is returned by RPCs interrupted by the node shutting down.
var ErrShutdown = fmt.Errorf("node is shutdown")

// HandlerFunc processes a request. A returned error is sent back to the
// requester as an error body.
type HandlerFunc func(msg net.Message) error

// InitFunc is called once the node knows its id and the cluster membership.
type InitFunc func() error

// InitRequest is the body of an init message.
type InitRequest struct {
	Type    string   `json:"type"`
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

// OKResponse is a body with nothing but a type, like init_ok.
type OKResponse struct {
	Type string `json:"type"`
}

// ErrorResponse is the body of an error reply.
type ErrorResponse struct {
	Type string `json:"type"`
	Code int    `json:"code"`
	Text string `json:"text"`
}

// Node dispatches the messages received by a transport to registered handlers
// and correlates RPC replies with their requests.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	trans net.Transport
	netCh <-chan net.Message

	membershipLock sync.RWMutex
	id             string
	nodeIDs        []string

	handlerLock sync.RWMutex
	handlers    map[string]HandlerFunc
	initHooks   []InitFunc

	pendingLock sync.Mutex
	pending     map[int64]chan net.Message

	msgID int64

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	start          time.Time
	received       int64
	sent           int64
	rpcRequests    int64
	rpcErrors      int64
	unhandled      int64
	droppedReplies int64
}

// NewNode is a factory method that returns a Node instance
func NewNode(conf *Config, trans net.Transport) *Node {
	node := Node{
		conf:       conf,
		logger:     conf.Logger.WithField("prefix", "node"),
		trans:      trans,
		netCh:      trans.Consumer(),
		handlers:   make(map[string]HandlerFunc),
		pending:    make(map[int64]chan net.Message),
		shutdownCh: make(chan struct{}),
		start:      time.Now(),
	}

	return &node
}

// Handle registers the handler for messages of the given type, replacing any
// previous one.
func (n *Node) Handle(typ string, h HandlerFunc) {
	n.handlerLock.Lock()
	defer n.handlerLock.Unlock()
	n.handlers[typ] = h
}

// OnInit registers a function to run when the node is initialised. Hooks run in
// registration order.
func (n *Node) OnInit(f InitFunc) {
	n.handlerLock.Lock()
	defer n.handlerLock.Unlock()
	n.initHooks = append(n.initHooks, f)
}

// Init records the id of this node and the ids of all cluster members, then
// runs the init hooks. It can only be called once.
func (n *Node) Init(id string, nodeIDs []string) error {
	n.membershipLock.Lock()
	if n.id != "" {
		n.membershipLock.Unlock()
		return common.NewRPCError(common.PreconditionFailed, "node already initialised as %s", n.id)
	}
	n.id = id
	n.nodeIDs = append([]string{}, nodeIDs...)
	n.membershipLock.Unlock()

	n.logger.WithFields(logrus.Fields{
		"id":       id,
		"node_ids": nodeIDs,
	}).Debug("Init")

	n.handlerLock.RLock()
	hooks := append([]InitFunc{}, n.initHooks...)
	n.handlerLock.RUnlock()

	for _, h := range hooks {
		if err := h(); err != nil {
			n.logger.WithError(err).Error("Init hook")
			return err
		}
	}

	if n.getState() == Initialising {
		n.setState(Running)
	}

	return nil
}

// ID returns the id of this node, or the empty string before Init.
func (n *Node) ID() string {
	n.membershipLock.RLock()
	defer n.membershipLock.RUnlock()
	return n.id
}

// NodeIDs returns a copy of the ids of every cluster member, this node
// included.
func (n *Node) NodeIDs() []string {
	n.membershipLock.RLock()
	defer n.membershipLock.RUnlock()
	return append([]string{}, n.nodeIDs...)
}

// OtherNodeIDs returns the ids of the cluster members other than this node.
func (n *Node) OtherNodeIDs() []string {
	n.membershipLock.RLock()
	defer n.membershipLock.RUnlock()
	res := make([]string, 0, len(n.nodeIDs))
	for _, id := range n.nodeIDs {
		if id != n.id {
			res = append(res, id)
		}
	}
	return res
}

// NextMsgID allocates a new message id. Ids start at 1 and are never reused.
func (n *Node) NextMsgID() int64 {
	return atomic.AddInt64(&n.msgID, 1)
}

// GetState returns the state of the node.
func (n *Node) GetState() State {
	return n.getState()
}

// Done is closed when the node shuts down.
func (n *Node) Done() <-chan struct{} {
	return n.shutdownCh
}

// Go runs f on a goroutine tracked by the node. Shutdown waits for it.
func (n *Node) Go(f func()) {
	n.goFunc(f)
}

// Every calls f every interval until the node shuts down. The next period
// starts when f returns.
func (n *Node) Every(interval time.Duration, f func()) {
	timer := NewPeriodicControlTimer()
	go timer.Run(interval)

	n.goFunc(func() {
		defer timer.Shutdown()
		for {
			select {
			case <-timer.tickCh:
				f()
				select {
				case timer.resetCh <- interval:
				case <-n.shutdownCh:
					return
				}
			case <-n.shutdownCh:
				return
			}
		}
	})
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	go n.Run()
}

// Run starts the transport and processes inbound messages until the transport
// closes its consumer channel or the node is shut down.
func (n *Node) Run() {
	go n.trans.Listen()

	for {
		select {
		case msg, ok := <-n.netCh:
			if !ok {
				n.logger.Debug("Transport closed")
				n.Shutdown()
				return
			}
			n.process(msg)
		case <-n.shutdownCh:
			return
		}
	}
}

func (n *Node) process(msg net.Message) {
	atomic.AddInt64(&n.received, 1)

	header, err := msg.Header()
	if err != nil {
		n.logger.WithError(err).WithField("src", msg.Src).Error("Decoding message body")
		return
	}

	if header.InReplyTo != 0 {
		n.deliverReply(header.InReplyTo, msg)
		return
	}

	if header.Type == InitType {
		n.goFunc(func() { n.handleInit(msg) })
		return
	}

	n.handlerLock.RLock()
	h, ok := n.handlers[header.Type]
	n.handlerLock.RUnlock()

	if !ok {
		atomic.AddInt64(&n.unhandled, 1)
		n.logger.WithFields(logrus.Fields{
			"type": header.Type,
			"src":  msg.Src,
		}).Debug("No handler")

		// error bodies are never answered, so two nodes cannot bounce them
		if header.MsgID != 0 && header.Type != net.ErrorType {
			n.goFunc(func() {
				n.ReplyError(msg, common.NewRPCError(common.NotSupported, "unsupported message type %q", header.Type))
			})
		}
		return
	}

	n.goFunc(func() {
		if err := h(msg); err != nil {
			n.logger.WithError(err).WithFields(logrus.Fields{
				"type": header.Type,
				"src":  msg.Src,
			}).Debug("Handler error")
			n.ReplyError(msg, err)
		}
	})
}

func (n *Node) handleInit(msg net.Message) {
	var req InitRequest
	if err := msg.Decode(&req); err != nil {
		n.ReplyError(msg, err)
		return
	}

	if err := n.Init(req.NodeID, req.NodeIDs); err != nil {
		n.ReplyError(msg, err)
		return
	}

	if err := n.Reply(msg, OKResponse{Type: "init_ok"}); err != nil {
		n.logger.WithError(err).Error("Replying to init")
	}
}

func (n *Node) deliverReply(inReplyTo int64, msg net.Message) {
	n.pendingLock.Lock()
	ch, ok := n.pending[inReplyTo]
	delete(n.pending, inReplyTo)
	n.pendingLock.Unlock()

	if !ok {
		atomic.AddInt64(&n.droppedReplies, 1)
		n.logger.WithFields(logrus.Fields{
			"src":         msg.Src,
			"in_reply_to": inReplyTo,
		}).Debug("Dropping unmatched reply")
		return
	}

	// buffered with capacity 1 and delivered at most once
	ch <- msg
}

// Send sends body to dest without waiting for a reply.
func (n *Node) Send(dest string, body interface{}) error {
	return n.send(dest, body, 0, 0)
}

// Reply answers req with body.
func (n *Node) Reply(req net.Message, body interface{}) error {
	header, err := req.Header()
	if err != nil {
		return err
	}
	return n.send(req.Src, body, 0, header.MsgID)
}

// ReplyError answers req with an error body built from err.
func (n *Node) ReplyError(req net.Message, err error) {
	text := err.Error()
	if rpcErr, ok := err.(*common.RPCError); ok && rpcErr.Text != "" {
		text = rpcErr.Text
	}

	body := ErrorResponse{
		Type: net.ErrorType,
		Code: int(common.ErrorCode(err)),
		Text: text,
	}

	if err := n.Reply(req, body); err != nil {
		n.logger.WithError(err).WithField("dest", req.Src).Error("Replying error")
	}
}

// RPC sends body to dest and waits for the reply. An error reply is returned
// as a *common.RPCError together with the reply itself. If ctx has no deadline,
// the configured RPCTimeout applies.
func (n *Node) RPC(ctx context.Context, dest string, body interface{}) (net.Message, error) {
	if _, ok := ctx.Deadline(); !ok && n.conf.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.conf.RPCTimeout)
		defer cancel()
	}

	atomic.AddInt64(&n.rpcRequests, 1)

	msgID := n.NextMsgID()
	respCh := make(chan net.Message, 1)

	n.pendingLock.Lock()
	n.pending[msgID] = respCh
	n.pendingLock.Unlock()

	defer func() {
		n.pendingLock.Lock()
		delete(n.pending, msgID)
		n.pendingLock.Unlock()
	}()

	if err := n.send(dest, body, msgID, 0); err != nil {
		atomic.AddInt64(&n.rpcErrors, 1)
		return net.Message{}, err
	}

	select {
	case resp := <-respCh:
		if rpcErr := resp.RPCError(); rpcErr != nil {
			atomic.AddInt64(&n.rpcErrors, 1)
			return resp, rpcErr
		}
		return resp, nil
	case <-ctx.Done():
		atomic.AddInt64(&n.rpcErrors, 1)
		return net.Message{}, common.NewRPCError(common.Timeout, "rpc to %s: %v", dest, ctx.Err())
	case <-n.shutdownCh:
		return net.Message{}, ErrShutdown
	}
}

// send stamps body with a msg_id, and an in_reply_to when inReplyTo is not
// zero, and hands it to the transport. A zero msgID allocates a new one.
func (n *Node) send(dest string, body interface{}, msgID int64, inReplyTo int64) error {
	if msgID == 0 {
		msgID = n.NextMsgID()
	}

	raw, err := encodeBody(body, msgID, inReplyTo)
	if err != nil {
		return err
	}

	msg := net.Message{
		Src:  n.ID(),
		Dest: dest,
		Body: raw,
	}

	if err := n.trans.Send(msg); err != nil {
		return err
	}

	atomic.AddInt64(&n.sent, 1)

	return nil
}

func encodeBody(body interface{}, msgID int64, inReplyTo int64) (json.RawMessage, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("message body must be a JSON object: %v", err)
	}

	fields["msg_id"] = json.RawMessage(strconv.FormatInt(msgID, 10))
	if inReplyTo != 0 {
		fields["in_reply_to"] = json.RawMessage(strconv.FormatInt(inReplyTo, 10))
	}

	return json.Marshal(fields)
}

// Shutdown stops the read loop, closes the transport and waits for the
// handlers still running.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		n.setState(Shutdown)

		close(n.shutdownCh)

		n.trans.Close()

		n.waitRoutines()
	})
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.pendingLock.Lock()
	pending := len(n.pending)
	n.pendingLock.Unlock()

	var uptime time.Duration
	if !n.start.IsZero() {
		uptime = time.Since(n.start)
	}

	load := func(addr *int64) string {
		return strconv.FormatInt(atomic.LoadInt64(addr), 10)
	}

	return map[string]string{
		"id":                n.ID(),
		"node_ids":          strings.Join(n.NodeIDs(), ","),
		"state":             n.getState().String(),
		"transport":         n.trans.AdvertiseAddr(),
		"uptime":            uptime.Round(time.Second).String(),
		"messages_received": load(&n.received),
		"messages_sent":     load(&n.sent),
		"rpc_requests":      load(&n.rpcRequests),
		"rpc_errors":        load(&n.rpcErrors),
		"unhandled":         load(&n.unhandled),
		"dropped_replies":   load(&n.droppedReplies),
		"pending_rpcs":      strconv.Itoa(pending),
		"routines":          strconv.Itoa(int(n.routines())),
	}
}
