package lock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vatgate/pkg/platform/circuit"
	"vatgate/pkg/platform/sentinel"
)

// FallbackLocker prefers primary and switches to fallback while the breaker
// is open. While open, primary is probed at most once per probe interval.
// Leases taken from fallback only exclude callers in this process; the
// store's conditional debit still prevents overdraw across instances.
type FallbackLocker struct {
	primary  Locker
	fallback Locker
	breaker  *circuit.Breaker
	logger   *slog.Logger
	probe    time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

type FallbackOption func(*FallbackLocker)

func WithLogger(logger *slog.Logger) FallbackOption {
	return func(l *FallbackLocker) {
		l.logger = logger
	}
}

func WithProbeInterval(d time.Duration) FallbackOption {
	return func(l *FallbackLocker) {
		if d > 0 {
			l.probe = d
		}
	}
}

func NewFallback(primary, fallback Locker, breaker *circuit.Breaker, opts ...FallbackOption) *FallbackLocker {
	l := &FallbackLocker{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   slog.New(slog.DiscardHandler),
		probe:    5 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FallbackLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	if l.breaker.IsOpen() && !l.shouldProbe() {
		return l.fallback.Acquire(ctx, key, ttl)
	}

	release, err := l.primary.Acquire(ctx, key, ttl)
	if err == nil {
		if _, change := l.breaker.RecordSuccess(); change.Closed {
			l.logger.InfoContext(ctx, "lock backend recovered", "breaker", l.breaker.Name())
		}
		return release, nil
	}
	if !errors.Is(err, sentinel.ErrUnavailable) {
		return nil, err
	}

	if _, change := l.breaker.RecordFailure(); change.Opened {
		l.logger.WarnContext(ctx, "lock backend unavailable, using in-process locks",
			"breaker", l.breaker.Name(),
			"error", err,
		)
	}
	return l.fallback.Acquire(ctx, key, ttl)
}

func (l *FallbackLocker) shouldProbe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastProbe) < l.probe {
		return false
	}
	l.lastProbe = now
	return true
}
