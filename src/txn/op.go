package txn

import (
	"encoding/json"
	"fmt"

	"github.com/mosaicnetworks/murmur/src/common"
)

const (
	// Read ...
	Read = "r"
	// Write ...
	Write = "w"
)

// Op is one operation of a transaction. Value is nil for reads of absent keys
// and in read requests.
type Op struct {
	Kind  string
	Key   uint64
	Value *uint64
}

// NewRead ...
func NewRead(key uint64) Op {
	return Op{Kind: Read, Key: key}
}

// NewWrite ...
func NewWrite(key, value uint64) Op {
	return Op{Kind: Write, Key: key, Value: &value}
}

// MarshalJSON encodes the operation as [kind, key, value].
func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{o.Kind, o.Key, o.Value})
}

// UnmarshalJSON ...
func (o *Op) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("operation should be [kind, key, value], got %s", data)
	}

	if err := json.Unmarshal(fields[0], &o.Kind); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[1], &o.Key); err != nil {
		return err
	}

	o.Value = nil
	if len(fields) == 3 {
		if err := json.Unmarshal(fields[2], &o.Value); err != nil {
			return err
		}
	}

	return nil
}

func (o Op) validate() error {
	switch {
	case o.Kind == Write && o.Value == nil:
		return common.NewRPCError(common.MalformedRequest, "write of key %d has no value", o.Key)
	case o.Kind != Read && o.Kind != Write:
		return common.NewRPCError(common.MalformedRequest, "unknown operation %q", o.Kind)
	}
	return nil
}
