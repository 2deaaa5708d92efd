package commitlog

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entry is a message and its offset. It is encoded as [offset, value].
type Entry struct {
	Offset uint64
	Value  uint64
}

// MarshalJSON ...
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{e.Offset, e.Value})
}

// UnmarshalJSON ...
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("log entry should be [offset, value], got %s", data)
	}
	e.Offset, e.Value = pair[0], pair[1]
	return nil
}

// Log is a set of append-only logs addressed by key.
type Log interface {
	// Send appends value to the log of key and returns its offset.
	Send(ctx context.Context, key string, value uint64) (uint64, error)
	// Poll returns, for every requested key, the entries starting at the
	// requested offset. Keys without an entry at that offset are omitted.
	Poll(ctx context.Context, offsets map[string]uint64) (map[string][]Entry, error)
	// CommitOffsets records the committed offset of the given keys. Other keys
	// keep their committed offset.
	CommitOffsets(ctx context.Context, offsets map[string]uint64) error
	// ListCommittedOffsets returns the committed offsets of the requested keys.
	// Keys that were never committed are omitted.
	ListCommittedOffsets(ctx context.Context, keys []string) (map[string]uint64, error)
}
