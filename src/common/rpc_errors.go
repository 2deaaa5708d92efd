package common

import "fmt"

// RPCErrType is the numeric error code carried by an error message body. The
// values follow the Maelstrom protocol so that errors survive the round trip
// through any harness speaking it.
type RPCErrType int

const (
	// Timeout means the request could not be answered in time.
	Timeout RPCErrType = 0
	// NodeNotFound means the destination does not exist.
	NodeNotFound RPCErrType = 1
	// NotSupported means the message type is not handled by this node.
	NotSupported RPCErrType = 10
	// TemporarilyUnavailable ...
	TemporarilyUnavailable RPCErrType = 11
	// MalformedRequest means the body could not be decoded.
	MalformedRequest RPCErrType = 12
	// Crash is the catch-all for handler failures.
	Crash RPCErrType = 13
	// Abort ...
	Abort RPCErrType = 14
	// KeyDoesNotExist is returned by stores reading an absent key.
	KeyDoesNotExist RPCErrType = 20
	// KeyAlreadyExists ...
	KeyAlreadyExists RPCErrType = 21
	// PreconditionFailed is returned by a compare-and-swap whose expected value
	// did not match.
	PreconditionFailed RPCErrType = 22
	// TxnConflict ...
	TxnConflict RPCErrType = 30
)

// String ...
func (t RPCErrType) String() string {
	switch t {
	case Timeout:
		return "Timeout"
	case NodeNotFound:
		return "Node Not Found"
	case NotSupported:
		return "Not Supported"
	case TemporarilyUnavailable:
		return "Temporarily Unavailable"
	case MalformedRequest:
		return "Malformed Request"
	case Crash:
		return "Crash"
	case Abort:
		return "Abort"
	case KeyDoesNotExist:
		return "Key Does Not Exist"
	case KeyAlreadyExists:
		return "Key Already Exists"
	case PreconditionFailed:
		return "Precondition Failed"
	case TxnConflict:
		return "Txn Conflict"
	default:
		return fmt.Sprintf("Error %d", int(t))
	}
}

// RPCError is an error that can be sent back to a remote caller, or that was
// received from one.
type RPCError struct {
	Code RPCErrType
	Text string
}

// NewRPCError ...
func NewRPCError(code RPCErrType, format string, args ...interface{}) *RPCError {
	return &RPCError{
		Code: code,
		Text: fmt.Sprintf(format, args...),
	}
}

// Error ...
func (e *RPCError) Error() string {
	if e.Text == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Text)
}

// IsRPC checks that an error is an RPCError and that its code matches the
// provided one.
func IsRPC(err error, t RPCErrType) bool {
	rpcErr, ok := err.(*RPCError)
	return ok && rpcErr.Code == t
}

// ErrorCode returns the code to report for err. Errors that did not originate
// from an RPCError are reported as crashes.
func ErrorCode(err error) RPCErrType {
	if rpcErr, ok := err.(*RPCError); ok {
		return rpcErr.Code
	}
	return Crash
}
