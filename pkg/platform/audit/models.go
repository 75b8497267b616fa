// Package audit records balance movements and batch decisions. Events are
// transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	id "vatgate/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action names an audited event.
type Action string

const (
	// ActionCreditDebited is the write-ahead charge for a batch. It is
	// written fail-closed alongside the debit.
	ActionCreditDebited Action = "credit_debited"
	// ActionCreditToppedUp records an operator top-up.
	ActionCreditToppedUp Action = "credit_topped_up"
	// ActionBatchCompleted records the end of a batch, including partial and
	// cancelled runs.
	ActionBatchCompleted Action = "batch_completed"
	// ActionBatchRejected records a batch refused for insufficient credit.
	ActionBatchRejected Action = "batch_rejected"
)

// Event is one audit record.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Action    Action          `json:"action"`
	AccountID id.AccountID    `json:"account_id"`
	BatchID   id.BatchID      `json:"batch_id,omitzero"`
	RequestID string          `json:"request_id,omitempty"`
	ActorID   string          `json:"actor_id,omitempty"`
	Items     int             `json:"items"`
	Checked   int             `json:"checked"`
	Skipped   int             `json:"skipped"`
	Charged   decimal.Decimal `json:"charged"`
	Credited  decimal.Decimal `json:"credited,omitzero"`
	Balance   decimal.Decimal `json:"balance"`
	Reason    string          `json:"reason,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store persists or forwards events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is an event waiting in the transactional outbox for relay.
type OutboxEntry struct {
	ID        uuid.UUID
	AccountID id.AccountID
	Action    Action
	Payload   []byte
	CreatedAt time.Time
}
