package models

import (
	"errors"
	"time"

	id "vatgate/pkg/domain"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned by stores when a debit would take the
// balance below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Account is one metered credit balance.
type Account struct {
	ID        id.AccountID    `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EntryReason labels a ledger movement.
type EntryReason string

const (
	ReasonInitial EntryReason = "initial_grant"
	ReasonBatch   EntryReason = "batch_debit"
	ReasonTopUp   EntryReason = "top_up"
)

// Entry is an append-only record of a balance movement. Debits carry a
// negative Amount.
type Entry struct {
	AccountID    id.AccountID    `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       EntryReason     `json:"reason"`
	Reference    string          `json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Movement describes a requested balance change. Amount is always positive;
// the store method decides the sign.
type Movement struct {
	Amount    decimal.Decimal
	Reason    EntryReason
	Reference string
	At        time.Time
}
