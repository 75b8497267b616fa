package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vatgate/pkg/platform/sentinel"
)

type lease struct {
	token   uint64
	expires time.Time
}

// MemoryLocker is a process-local Locker with lease expiry.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

func NewMemory() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: time.Now}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	var token uint64
	err := poll(ctx, defaultPollInterval, func() (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		now := l.now()
		if cur, held := l.leases[key]; held && now.Before(cur.expires) {
			return false, nil
		}
		l.next++
		token = l.next
		l.leases[key] = lease{token: token, expires: now.Add(ttl)}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire %s: %w", key, sentinel.ErrLocked)
		}
		return nil, err
	}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, held := l.leases[key]; held && cur.token == token {
			delete(l.leases, key)
		}
		return nil
	}, nil
}
