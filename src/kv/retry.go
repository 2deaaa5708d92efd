package kv

import (
	"context"
	"math/rand"
	"time"
)

// UpdateOptions tunes the retry loop of Update. The zero value retries
// immediately and without limit.
type UpdateOptions struct {
	// MaxAttempts bounds the number of compare-and-swap attempts. 0 means no
	// bound.
	MaxAttempts int
	// Backoff is the initial wait after a conflict. It grows exponentially with
	// random jitter, up to MaxWait if MaxWait is positive. 0 means no wait.
	Backoff time.Duration
	MaxWait time.Duration
	// Report, if set, is called with every conflict.
	Report func(err error)
}

// Update applies fn to the value of key with an optimistic read, compute,
// compare-and-swap loop, and returns the value written. A missing key reads as
// 0 and is created by the swap. On conflict the value is read again and fn is
// called again, so fn must not have side effects. Errors other than conflicts,
// including errors returned by fn, end the loop.
func Update(ctx context.Context, store Store, key string, fn func(current int64) (int64, error), opts UpdateOptions) (int64, error) {
	backoff := opts.Backoff

	for attempt := 1; ; attempt++ {
		current, err := store.Get(ctx, key)
		create := false
		if IsNotFound(err) {
			current, create, err = 0, true, nil
		}
		if err != nil {
			return 0, err
		}

		next, err := fn(current)
		if err != nil {
			return 0, err
		}

		err = store.CompareAndSwap(ctx, key, current, next, create)
		if err == nil {
			return next, nil
		}
		if !IsConflict(err) {
			return 0, err
		}

		if opts.Report != nil {
			opts.Report(err)
		}

		if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
			return 0, err
		}

		if backoff <= 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			continue
		}

		wait := backoff + time.Duration(rand.Int63n(int64(backoff)))
		if opts.MaxWait > 0 && wait > opts.MaxWait {
			wait = opts.MaxWait
		}
		backoff = wait

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		}
	}
}
