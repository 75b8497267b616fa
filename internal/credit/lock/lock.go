// Package lock provides short-lived per-account mutual exclusion. The credit
// service holds a lock only while it reads a balance and writes the debit.
package lock

import (
	"context"
	"time"
)

// Release gives a lock back. Releasing an expired or stolen lock is a no-op.
type Release func(ctx context.Context) error

// Locker acquires exclusive leases on string keys.
type Locker interface {
	// Acquire blocks until the lease is held or ctx ends. It returns
	// sentinel.ErrLocked when ctx ends while another holder owns the key and
	// sentinel.ErrUnavailable when the backing service cannot be reached.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

const defaultPollInterval = 20 * time.Millisecond

// poll retries try until it reports acquired, returns an error, or ctx ends.
func poll(ctx context.Context, interval time.Duration, try func() (bool, error)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
