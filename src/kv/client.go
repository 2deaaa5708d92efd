package kv

import (
	"context"

	"github.com/mosaicnetworks/murmur/src/node"
)

// Client is a Store served by another node of the cluster, usually seq-kv or
// lin-kv. Errors returned by the service keep their codes, so IsNotFound and
// IsConflict work on them.
type Client struct {
	node    *node.Node
	service string
}

// NewClient returns a Client sending its requests through n to service.
func NewClient(n *node.Node, service string) *Client {
	return &Client{
		node:    n,
		service: service,
	}
}

// Service returns the id of the node serving the store.
func (c *Client) Service() string {
	return c.service
}

// Get implements the Store interface.
func (c *Client) Get(ctx context.Context, key string) (int64, error) {
	resp, err := c.node.RPC(ctx, c.service, ReadRequest{
		Type: "read",
		Key:  key,
	})
	if err != nil {
		return 0, err
	}

	var out ReadResponse
	if err := resp.Decode(&out); err != nil {
		return 0, err
	}

	return out.Value, nil
}

// Put implements the Store interface.
func (c *Client) Put(ctx context.Context, key string, value int64) error {
	_, err := c.node.RPC(ctx, c.service, WriteRequest{
		Type:  "write",
		Key:   key,
		Value: value,
	})
	return err
}

// CompareAndSwap implements the Store interface.
func (c *Client) CompareAndSwap(ctx context.Context, key string, from, to int64, create bool) error {
	_, err := c.node.RPC(ctx, c.service, CASRequest{
		Type:              "cas",
		Key:               key,
		From:              from,
		To:                to,
		CreateIfNotExists: create,
	})
	return err
}
