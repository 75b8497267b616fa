package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	audit "vatgate/pkg/platform/audit"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	mu        sync.Mutex
	pending   []audit.OutboxEntry
	published []uuid.UUID
}

func (f *fakeOutbox) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeOutbox) Claim(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(limit, len(f.pending))
	return append([]audit.OutboxEntry(nil), f.pending[:n]...), nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ids...)
	f.pending = f.pending[len(ids):]
	return nil
}

type fakeSink struct {
	mu   sync.Mutex
	got  []audit.OutboxEntry
	fail error
}

func (f *fakeSink) PublishEntries(_ context.Context, entries []audit.OutboxEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, entries...)
	return nil
}

func entries(n int) []audit.OutboxEntry {
	out := make([]audit.OutboxEntry, n)
	for i := range out {
		out[i] = audit.OutboxEntry{ID: uuid.New(), AccountID: "acme", Action: audit.ActionCreditDebited}
	}
	return out
}

func TestRelayOnce(t *testing.T) {
	outbox := &fakeOutbox{pending: entries(5)}
	sink := &fakeSink{}
	w := NewWorker(outbox, sink, WithBatchSize(3))

	n, err := w.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, sink.got, 3)
	assert.Len(t, outbox.pending, 2)
}

func TestRelayOnceSinkFailureKeepsEntries(t *testing.T) {
	outbox := &fakeOutbox{pending: entries(2)}
	sink := &fakeSink{fail: errors.New("broker down")}
	w := NewWorker(outbox, sink)

	n, err := w.RelayOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, outbox.pending, 2)
	assert.Empty(t, outbox.published)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	outbox := &fakeOutbox{pending: entries(7)}
	sink := &fakeSink{}
	w := NewWorker(outbox, sink, WithBatchSize(2), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.got) == 7
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
