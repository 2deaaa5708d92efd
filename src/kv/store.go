package kv

import (
	"context"

	"github.com/mosaicnetworks/murmur/src/common"
)

const (
	// SeqKV is the id of the sequentially consistent store service.
	SeqKV = "seq-kv"
	// LinKV is the id of the linearizable store service.
	LinKV = "lin-kv"
)

// Store is a key-value store of integers with an atomic compare-and-swap.
type Store interface {
	// Get returns the value of key, or a KeyDoesNotExist error.
	Get(ctx context.Context, key string) (int64, error)
	// Put sets the value of key unconditionally.
	Put(ctx context.Context, key string, value int64) error
	// CompareAndSwap sets key to to if its current value is from. If key does
	// not exist, it is set to to when create is true, and a KeyDoesNotExist
	// error is returned otherwise. A mismatch is a PreconditionFailed error.
	CompareAndSwap(ctx context.Context, key string, from, to int64, create bool) error
}

// IsNotFound reports whether err means that the key does not exist.
func IsNotFound(err error) bool {
	return common.IsRPC(err, common.KeyDoesNotExist)
}

// IsConflict reports whether err is a failed compare-and-swap.
func IsConflict(err error) bool {
	return common.IsRPC(err, common.PreconditionFailed)
}

func notFound(key string) error {
	return common.NewRPCError(common.KeyDoesNotExist, "key %s does not exist", key)
}

func conflict(key string, expected, actual int64) error {
	return common.NewRPCError(common.PreconditionFailed, "key %s: expected %d, but had %d", key, expected, actual)
}
