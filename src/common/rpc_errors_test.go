package common

import (
	"errors"
	"testing"
)

func TestIsRPC(t *testing.T) {
	err := NewRPCError(PreconditionFailed, "expected %d, had %d", 1, 2)

	if !IsRPC(err, PreconditionFailed) {
		t.Fatalf("err should be PreconditionFailed")
	}

	if IsRPC(err, KeyDoesNotExist) {
		t.Fatalf("err should not be KeyDoesNotExist")
	}

	if IsRPC(errors.New("boom"), Crash) {
		t.Fatalf("plain errors are not RPC errors")
	}

	if err.Error() != "Precondition Failed: expected 1, had 2" {
		t.Fatalf("unexpected error text: %s", err.Error())
	}
}

func TestErrorCode(t *testing.T) {
	if c := ErrorCode(NewRPCError(KeyDoesNotExist, "")); c != KeyDoesNotExist {
		t.Fatalf("code should be %d, not %d", KeyDoesNotExist, c)
	}

	if c := ErrorCode(errors.New("boom")); c != Crash {
		t.Fatalf("code should be %d, not %d", Crash, c)
	}

	if s := RPCErrType(99).String(); s != "Error 99" {
		t.Fatalf("unexpected string for unknown code: %s", s)
	}
}
