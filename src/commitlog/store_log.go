package commitlog

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/murmur/src/kv"
	"github.com/sirupsen/logrus"
)

const (
	latestOffsetsPrefix    = "latest_offsets"
	logsPrefix             = "logs"
	committedOffsetsPrefix = "commited_offsets"
)

func latestOffsetKey(key string) string {
	return fmt.Sprintf("%s_%s", latestOffsetsPrefix, key)
}

func logKey(key string, offset uint64) string {
	return fmt.Sprintf("%s_%s_%d", logsPrefix, key, offset)
}

func committedOffsetKey(key string) string {
	return fmt.Sprintf("%s_%s", committedOffsetsPrefix, key)
}

// StoreLog is a Log kept in a shared linearizable store.
//
// Store errors other than a missing key or a failed swap are logged and read as
// a missing value, unless strict is set, in which case they fail the call.
type StoreLog struct {
	store     kv.Store
	pollBatch int
	strict    bool
	logger    *logrus.Entry
}

// NewStoreLog returns a Log backed by store. pollBatch bounds the entries
// returned per key by Poll; 0 or less means no bound.
func NewStoreLog(store kv.Store, pollBatch int, strict bool, logger *logrus.Entry) *StoreLog {
	return &StoreLog{
		store:     store,
		pollBatch: pollBatch,
		strict:    strict,
		logger:    logger,
	}
}

// get reads a store key. found is false if the key does not exist, or if the
// read failed and the log is not strict.
func (l *StoreLog) get(ctx context.Context, key string) (value int64, found bool, err error) {
	v, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		return v, true, nil
	case kv.IsNotFound(err):
		return 0, false, nil
	case l.strict:
		return 0, false, err
	}

	l.logger.WithError(err).WithField("key", key).Warn("error while getting value")
	return 0, false, nil
}

func (l *StoreLog) put(ctx context.Context, key string, value int64) error {
	err := l.store.Put(ctx, key, value)
	if err == nil {
		return nil
	}
	if l.strict {
		return err
	}

	l.logger.WithError(err).WithField("key", key).Warn("error while writing value")
	return nil
}

// Send implements the Log interface. The offset is claimed by swapping
// latest_offsets_<key> from offset-1 to offset, moving to the next offset
// after every conflict, and the message is written once the offset is ours.
func (l *StoreLog) Send(ctx context.Context, key string, value uint64) (uint64, error) {
	latestKey := latestOffsetKey(key)

	latest, found, err := l.get(ctx, latestKey)
	if err != nil {
		return 0, err
	}

	offset := int64(0)
	if found {
		offset = latest + 1
	}

	for {
		err := l.store.CompareAndSwap(ctx, latestKey, offset-1, offset, true)
		if err == nil {
			break
		}
		if !kv.IsConflict(err) {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		offset++
	}

	if err := l.put(ctx, logKey(key, uint64(offset)), int64(value)); err != nil {
		return 0, err
	}

	return uint64(offset), nil
}

// Poll implements the Log interface. Entries are read one offset after the
// other until the first missing one.
func (l *StoreLog) Poll(ctx context.Context, offsets map[string]uint64) (map[string][]Entry, error) {
	res := make(map[string][]Entry)

	for key, from := range offsets {
		var entries []Entry
		for o := from; l.pollBatch <= 0 || len(entries) < l.pollBatch; o++ {
			v, found, err := l.get(ctx, logKey(key, o))
			if err != nil {
				return nil, err
			}
			if !found {
				break
			}
			entries = append(entries, Entry{Offset: o, Value: uint64(v)})
		}

		if len(entries) > 0 {
			res[key] = entries
		}
	}

	return res, nil
}

// CommitOffsets implements the Log interface.
func (l *StoreLog) CommitOffsets(ctx context.Context, offsets map[string]uint64) error {
	for key, o := range offsets {
		if err := l.put(ctx, committedOffsetKey(key), int64(o)); err != nil {
			return err
		}
	}
	return nil
}

// ListCommittedOffsets implements the Log interface.
func (l *StoreLog) ListCommittedOffsets(ctx context.Context, keys []string) (map[string]uint64, error) {
	res := make(map[string]uint64)

	for _, key := range keys {
		o, found, err := l.get(ctx, committedOffsetKey(key))
		if err != nil {
			return nil, err
		}
		if found {
			res[key] = uint64(o)
		}
	}

	return res, nil
}
