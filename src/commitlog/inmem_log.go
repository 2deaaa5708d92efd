package commitlog

import (
	"context"
	"sync"
)

// DefaultPollBatch is the maximum number of entries InmemLog returns per key
// and per poll.
const DefaultPollBatch = 3

// InmemLog is a Log held by a single node. Since the node is the only
// authority, one lock orders all appends.
type InmemLog struct {
	sync.Mutex
	logs      map[string][]uint64
	committed map[string]uint64
	pollBatch int
}

// NewInmemLog returns an empty log. pollBatch bounds the entries returned per
// key by Poll; 0 selects DefaultPollBatch and a negative value removes the
// bound.
func NewInmemLog(pollBatch int) *InmemLog {
	if pollBatch == 0 {
		pollBatch = DefaultPollBatch
	}
	return &InmemLog{
		logs:      make(map[string][]uint64),
		committed: make(map[string]uint64),
		pollBatch: pollBatch,
	}
}

// Send implements the Log interface.
func (l *InmemLog) Send(ctx context.Context, key string, value uint64) (uint64, error) {
	l.Lock()
	defer l.Unlock()

	offset := uint64(len(l.logs[key]))
	l.logs[key] = append(l.logs[key], value)

	return offset, nil
}

// Poll implements the Log interface.
func (l *InmemLog) Poll(ctx context.Context, offsets map[string]uint64) (map[string][]Entry, error) {
	l.Lock()
	defer l.Unlock()

	res := make(map[string][]Entry)
	for key, from := range offsets {
		log := l.logs[key]
		if from >= uint64(len(log)) {
			continue
		}

		to := uint64(len(log))
		if l.pollBatch > 0 && to-from > uint64(l.pollBatch) {
			to = from + uint64(l.pollBatch)
		}

		entries := make([]Entry, 0, to-from)
		for o := from; o < to; o++ {
			entries = append(entries, Entry{Offset: o, Value: log[o]})
		}
		res[key] = entries
	}

	return res, nil
}

// CommitOffsets implements the Log interface.
func (l *InmemLog) CommitOffsets(ctx context.Context, offsets map[string]uint64) error {
	l.Lock()
	defer l.Unlock()

	for key, o := range offsets {
		l.committed[key] = o
	}

	return nil
}

// ListCommittedOffsets implements the Log interface.
func (l *InmemLog) ListCommittedOffsets(ctx context.Context, keys []string) (map[string]uint64, error) {
	l.Lock()
	defer l.Unlock()

	res := make(map[string]uint64)
	for _, key := range keys {
		if o, ok := l.committed[key]; ok {
			res[key] = o
		}
	}

	return res, nil
}
