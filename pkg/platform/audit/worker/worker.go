package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	audit "vatgate/pkg/platform/audit"

	"github.com/google/uuid"
)

// Outbox is the relay's view of the transactional outbox.
type Outbox interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Claim(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Sink receives relayed entries.
type Sink interface {
	PublishEntries(ctx context.Context, entries []audit.OutboxEntry) error
}

// Worker moves outbox entries to the sink. Entries are marked published only
// after the sink acknowledges them, so delivery is at-least-once.
type Worker struct {
	outbox    Outbox
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(outbox Outbox, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		sink:      sink,
		logger:    slog.New(slog.DiscardHandler),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx ends. Relay errors are logged and retried on the next
// tick.
func (w *Worker) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		for {
			n, err := w.RelayOnce(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					w.logger.ErrorContext(ctx, "audit outbox relay failed", "error", err)
				}
				break
			}
			// keep draining while full batches come back
			if n < w.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RelayOnce claims one batch, publishes it and marks it published in a
// single transaction. It returns the number of entries relayed.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	relayed := 0
	err := w.outbox.InTx(ctx, func(ctx context.Context) error {
		entries, err := w.outbox.Claim(ctx, w.batchSize)
		if err != nil || len(entries) == 0 {
			return err
		}
		if err := w.sink.PublishEntries(ctx, entries); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if err := w.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	return relayed, err
}
