package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"vatgate/internal/credit/models"
	id "vatgate/pkg/domain"
	"vatgate/pkg/platform/sentinel"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creditStore interface {
	Get(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	Create(ctx context.Context, accountID id.AccountID, initial decimal.Decimal, now time.Time) (*models.Account, error)
	Debit(ctx context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error)
	Credit(ctx context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error)
	Entries(ctx context.Context, accountID id.AccountID, limit int) ([]models.Entry, error)
}

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func debit(amount string) models.Movement {
	return models.Movement{Amount: dec(amount), Reason: models.ReasonBatch, Reference: "batch-1", At: now}
}

// runStoreContract exercises behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) creditStore) {
	ctx := context.Background()

	t.Run("get missing account", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nobody")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create then conflict", func(t *testing.T) {
		s := newStore(t)
		acct, err := s.Create(ctx, "acme", dec("10.00"), now)
		require.NoError(t, err)
		assert.Equal(t, "10.00", acct.Balance.StringFixed(2))

		_, err = s.Create(ctx, "acme", dec("10.00"), now)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("debit and credit adjust balance", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "acme", dec("10.00"), now)
		require.NoError(t, err)

		acct, err := s.Debit(ctx, "acme", debit("0.15"))
		require.NoError(t, err)
		assert.Equal(t, "9.85", acct.Balance.StringFixed(2))

		acct, err = s.Credit(ctx, "acme", models.Movement{Amount: dec("5"), Reason: models.ReasonTopUp, At: now})
		require.NoError(t, err)
		assert.Equal(t, "14.85", acct.Balance.StringFixed(2))

		got, err := s.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "14.85", got.Balance.StringFixed(2))
	})

	t.Run("debit to exactly zero is allowed", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "acme", dec("0.05"), now)
		require.NoError(t, err)
		acct, err := s.Debit(ctx, "acme", debit("0.05"))
		require.NoError(t, err)
		assert.True(t, acct.Balance.IsZero())
	})

	t.Run("debit below zero fails and leaves balance", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "acme", dec("0.10"), now)
		require.NoError(t, err)

		_, err = s.Debit(ctx, "acme", debit("0.15"))
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)

		got, err := s.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "0.10", got.Balance.StringFixed(2))
	})

	t.Run("debit missing account", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Debit(ctx, "ghost", debit("0.05"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("ledger newest first", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "acme", dec("1.00"), now)
		require.NoError(t, err)
		_, err = s.Debit(ctx, "acme", debit("0.25"))
		require.NoError(t, err)

		entries, err := s.Entries(ctx, "acme", 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.ReasonBatch, entries[0].Reason)
		assert.Equal(t, "-0.25", entries[0].Amount.StringFixed(2))
		assert.Equal(t, "0.75", entries[0].BalanceAfter.StringFixed(2))
		assert.Equal(t, "batch-1", entries[0].Reference)
		assert.Equal(t, models.ReasonInitial, entries[1].Reason)
	})

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "acme", dec("1.00"), now)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for range 30 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Debit(ctx, "acme", debit("0.05")); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, succeeded)
		got, err := s.Get(ctx, "acme")
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero())
	})
}
