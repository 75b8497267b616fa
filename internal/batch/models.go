package batch

import (
	"time"

	"github.com/shopspring/decimal"

	"vatgate/internal/vies/models"
)

// DuplicatePolicy decides what a repeated raw string produces within one batch.
// Repeats never trigger a second network call.
type DuplicatePolicy int

const (
	// SuppressDuplicates emits one row per distinct raw string, at its first position.
	SuppressDuplicates DuplicatePolicy = iota
	// ReemitDuplicates repeats the cached outcome at every position it was submitted.
	ReemitDuplicates
)

// Request is one metered batch submission.
type Request struct {
	Items   []string
	Balance decimal.Decimal
	Cost    decimal.Decimal
}

// Item is the result row for one processed identifier.
type Item struct {
	Index     int                  `json:"index"`
	Raw       string               `json:"raw"`
	ID        models.VatIdentifier `json:"id"`
	Outcome   models.Outcome       `json:"outcome"`
	Duplicate bool                 `json:"duplicate,omitempty"`
	CheckedAt time.Time            `json:"checked_at"`
}

// Result is the outcome of Engine.Run.
type Result struct {
	Items   []Item
	Skipped []string
	// Charged is cost × number of items admitted, duplicates included.
	Charged decimal.Decimal
	// Balance is the balance after the write-ahead deduction.
	Balance   decimal.Decimal
	Partial   bool
	Cancelled bool
}

// Plan is the metering decision taken before any network call.
type Plan struct {
	ToProcess  []string
	Skipped    []string
	Charged    decimal.Decimal
	NewBalance decimal.Decimal
}
