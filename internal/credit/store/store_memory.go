package store

import (
	"context"
	"sync"
	"time"

	"vatgate/internal/credit/models"
	id "vatgate/pkg/domain"
	"vatgate/pkg/platform/sentinel"

	"github.com/shopspring/decimal"
)

// DefaultEntryLimit bounds Entries when the caller passes no limit.
const DefaultEntryLimit = 50

// InMemoryStore keeps balances and ledger entries in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*models.Account
	entries  map[id.AccountID][]models.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.AccountID]*models.Account),
		entries:  make(map[id.AccountID][]models.Entry),
	}
}

func (s *InMemoryStore) Get(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *InMemoryStore) Create(_ context.Context, accountID id.AccountID, initial decimal.Decimal, now time.Time) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; ok {
		return nil, sentinel.ErrConflict
	}
	acct := &models.Account{ID: accountID, Balance: initial.Round(2), CreatedAt: now, UpdatedAt: now}
	s.accounts[accountID] = acct
	s.appendEntry(accountID, initial.Round(2), acct.Balance, models.ReasonInitial, "", now)
	cp := *acct
	return &cp, nil
}

func (s *InMemoryStore) Debit(_ context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := acct.Balance.Sub(m.Amount).Round(2)
	if next.IsNegative() {
		return nil, models.ErrInsufficientBalance
	}
	acct.Balance = next
	acct.UpdatedAt = m.At
	s.appendEntry(accountID, m.Amount.Neg(), next, m.Reason, m.Reference, m.At)
	cp := *acct
	return &cp, nil
}

func (s *InMemoryStore) Credit(_ context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	acct.Balance = acct.Balance.Add(m.Amount).Round(2)
	acct.UpdatedAt = m.At
	s.appendEntry(accountID, m.Amount, acct.Balance, m.Reason, m.Reference, m.At)
	cp := *acct
	return &cp, nil
}

// Entries returns up to limit entries, newest first.
func (s *InMemoryStore) Entries(_ context.Context, accountID id.AccountID, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultEntryLimit
	}
	all := s.entries[accountID]
	out := make([]models.Entry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *InMemoryStore) appendEntry(accountID id.AccountID, amount, after decimal.Decimal, reason models.EntryReason, ref string, at time.Time) {
	s.entries[accountID] = append(s.entries[accountID], models.Entry{
		AccountID:    accountID,
		Amount:       amount,
		BalanceAfter: after,
		Reason:       reason,
		Reference:    ref,
		CreatedAt:    at,
	})
}
