package handler

import (
	"strings"

	dErrors "vatgate/pkg/domain-errors"
	vstrings "vatgate/pkg/platform/strings"

	"github.com/shopspring/decimal"
)

const (
	maxBatchItems = 10000
	maxInputLen   = 64
)

// CheckRequest is the HTTP request body for POST /vat/check.
type CheckRequest struct {
	Country string `json:"country"`
	Number  string `json:"number"`
}

// Validate implements httputil.Validatable.
func (r *CheckRequest) Validate() error {
	r.Country = strings.TrimSpace(r.Country)
	r.Number = strings.TrimSpace(r.Number)
	if r.Country == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "country is required")
	}
	if r.Number == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "number is required")
	}
	if len(r.Country)+len(r.Number) > maxInputLen {
		return dErrors.New(dErrors.CodeInvalidInput, "VAT number is too long")
	}
	return nil
}

// BatchRequest is the HTTP request body for POST /vat/batch. Identifiers may
// come as a list, as pasted text with one per line, or both; list entries come
// first.
type BatchRequest struct {
	VatNumbers []string `json:"vat_numbers"`
	Text       string   `json:"text"`

	items []string
}

// Validate implements httputil.Validatable.
func (r *BatchRequest) Validate() error {
	items := vstrings.TrimNonEmpty(r.VatNumbers)
	items = append(items, vstrings.NonEmptyLines(r.Text)...)
	if len(items) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "no VAT numbers provided")
	}
	if len(items) > maxBatchItems {
		return dErrors.New(dErrors.CodeInvalidInput, "too many VAT numbers in one batch")
	}
	for _, item := range items {
		if len(item) > maxInputLen {
			return dErrors.New(dErrors.CodeInvalidInput, "VAT number is too long: "+item[:maxInputLen]+"...")
		}
	}
	r.items = items
	return nil
}

// Items returns the normalized identifiers in submission order.
func (r *BatchRequest) Items() []string {
	return r.items
}

// TopUpRequest is the HTTP request body for POST /admin/accounts/{id}/topup.
type TopUpRequest struct {
	Amount string `json:"amount"`
	Actor  string `json:"actor"`

	amount decimal.Decimal
}

// Validate implements httputil.Validatable.
func (r *TopUpRequest) Validate() error {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be a decimal string")
	}
	r.amount = amount
	r.Actor = strings.TrimSpace(r.Actor)
	if r.Actor == "" {
		r.Actor = "admin"
	}
	return nil
}

// ParsedAmount returns the validated amount.
func (r *TopUpRequest) ParsedAmount() decimal.Decimal {
	return r.amount
}
