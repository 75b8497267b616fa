//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	id "vatgate/pkg/domain"
	audit "vatgate/pkg/platform/audit"
	"vatgate/pkg/platform/audit/kafka"
	"vatgate/pkg/platform/audit/store/postgres"
	"vatgate/pkg/platform/audit/worker"
	"vatgate/pkg/testutil/containers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestOutboxRelayToKafka(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	rp := containers.NewRedpandaContainer(t)

	store := postgres.New(pg.DB)
	require.NoError(t, store.Migrate(ctx))

	const topic = "vatgate.audit.test"
	producer, err := kafka.NewProducer(rp.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(producer.Close)
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1), "second call must tolerate an existing topic")

	batchID := id.NewBatchID()
	err = store.InTx(ctx, func(ctx context.Context) error {
		return store.Append(ctx, audit.Event{
			Action:    audit.ActionCreditDebited,
			AccountID: "acme",
			BatchID:   batchID,
			Items:     3,
			Charged:   decimal.RequireFromString("0.15"),
			Balance:   decimal.RequireFromString("9.85"),
		})
	})
	require.NoError(t, err)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, pending)

	relay := worker.NewWorker(store, producer)
	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err = store.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "acme", string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, audit.ActionCreditDebited, got.Action)
	assert.Equal(t, batchID, got.BatchID)
	assert.Equal(t, "9.85", got.Balance.StringFixed(2))
}

func TestOutboxRollbackDropsEvent(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := postgres.New(pg.DB)
	require.NoError(t, store.Migrate(ctx))

	_ = store.InTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Append(ctx, audit.Event{Action: audit.ActionCreditDebited, AccountID: "acme"}))
		return assert.AnError
	})

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
