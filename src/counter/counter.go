package counter

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/kv"
	"github.com/mosaicnetworks/murmur/src/net"
	"github.com/mosaicnetworks/murmur/src/node"
	"github.com/sirupsen/logrus"
)

// Config ...
type Config struct {
	// StrictStore makes store errors other than a missing key fail reads
	// instead of reading as 0.
	StrictStore bool
	// Retry tunes the compare-and-swap loop of Add.
	Retry kv.UpdateOptions
}

// Counter is the counter role of a node.
type Counter struct {
	node   *node.Node
	store  kv.Store
	conf   Config
	logger *logrus.Entry
}

// NewCounter registers the counter handlers and init hook on n.
func NewCounter(n *node.Node, store kv.Store, conf Config, logger *logrus.Entry) *Counter {
	c := &Counter{
		node:   n,
		store:  store,
		conf:   conf,
		logger: logger,
	}

	n.OnInit(func() error { return c.Init(context.Background()) })

	n.Handle("add", c.handleAdd)
	n.Handle("read", c.handleRead)
	n.Handle("read_bucket", c.handleReadBucket)

	return c
}

// Init creates the bucket of this node if it does not exist yet. An existing
// bucket is left untouched.
func (c *Counter) Init(ctx context.Context) error {
	err := c.store.CompareAndSwap(ctx, c.node.ID(), 0, 0, true)
	switch {
	case err == nil, kv.IsConflict(err):
		return nil
	case c.conf.StrictStore:
		return err
	}

	c.logger.WithError(err).Warn("Creating bucket")
	return nil
}

// ReadOwnBucket returns the value of the bucket of this node. A missing bucket
// reads as 0.
func (c *Counter) ReadOwnBucket(ctx context.Context) (uint64, error) {
	v, err := c.store.Get(ctx, c.node.ID())
	switch {
	case err == nil:
		return uint64(v), nil
	case kv.IsNotFound(err):
		return 0, nil
	case c.conf.StrictStore:
		return 0, err
	}

	c.logger.WithError(err).Warn("Reading bucket")
	return 0, nil
}

// Add increments the bucket of this node by delta.
func (c *Counter) Add(ctx context.Context, delta uint64) error {
	if delta == 0 {
		return nil
	}

	_, err := kv.Update(ctx, c.store, c.node.ID(), func(current int64) (int64, error) {
		return current + int64(delta), nil
	}, c.conf.Retry)

	return err
}

// Read returns the sum of the buckets of all nodes. Peer buckets are requested
// concurrently; the read fails if any of them fails.
func (c *Counter) Read(ctx context.Context) (uint64, error) {
	own, err := c.ReadOwnBucket(ctx)
	if err != nil {
		return 0, err
	}

	peers := c.node.OtherNodeIDs()

	var wg sync.WaitGroup
	values := make([]uint64, len(peers))
	errs := make([]error, len(peers))

	for i, p := range peers {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			values[i], errs[i] = c.readBucket(ctx, p)
		}(i, p)
	}

	wg.Wait()

	total := own
	for i, p := range peers {
		if errs[i] != nil {
			return 0, common.NewRPCError(common.TemporarilyUnavailable, "reading bucket of %s: %v", p, errs[i])
		}
		total += values[i]
	}

	return total, nil
}

func (c *Counter) readBucket(ctx context.Context, peer string) (uint64, error) {
	resp, err := c.node.RPC(ctx, peer, OKResponse{Type: "read_bucket"})
	if err != nil {
		return 0, err
	}

	var out ValueResponse
	if err := resp.Decode(&out); err != nil {
		return 0, err
	}

	return out.Value, nil
}

func (c *Counter) handleAdd(msg net.Message) error {
	var req AddRequest
	if err := msg.Decode(&req); err != nil {
		return err
	}

	if err := c.Add(context.Background(), req.Delta); err != nil {
		c.logger.WithError(err).WithField("delta", req.Delta).Error("add")
		return err
	}

	return c.node.Reply(msg, OKResponse{Type: "add_ok"})
}

func (c *Counter) handleRead(msg net.Message) error {
	total, err := c.Read(context.Background())
	if err != nil {
		return err
	}

	return c.node.Reply(msg, ValueResponse{Type: "read_ok", Value: total})
}

func (c *Counter) handleReadBucket(msg net.Message) error {
	v, err := c.ReadOwnBucket(context.Background())
	if err != nil {
		return err
	}

	return c.node.Reply(msg, ValueResponse{Type: "read_bucket_ok", Value: v})
}
