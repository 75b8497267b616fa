package handler

import (
	"time"

	"vatgate/internal/batch"
	"vatgate/internal/credit/models"
	"vatgate/internal/credit/service"
	id "vatgate/pkg/domain"
)

// RowResponse is one checked identifier.
type RowResponse struct {
	Index     int       `json:"index"`
	Country   string    `json:"country"`
	VatNumber string    `json:"vat_number"`
	Status    string    `json:"status"`
	Name      string    `json:"name,omitempty"`
	Address   string    `json:"address,omitempty"`
	Details   string    `json:"details,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// BatchResponse is the body for POST /vat/batch and POST /vat/check.
type BatchResponse struct {
	BatchID      string        `json:"batch_id"`
	Results      []RowResponse `json:"results,omitzero"`
	Skipped      []string      `json:"skipped"`
	SkippedCount int           `json:"skipped_count"`
	Charged      string        `json:"charged"`
	Balance      string        `json:"balance"`
	Partial      bool          `json:"partial"`
	Cancelled    bool          `json:"cancelled,omitempty"`
}

// BalanceResponse is the body for GET /account/credit.
type BalanceResponse struct {
	AccountID    string `json:"account_id"`
	Balance      string `json:"balance"`
	CostPerCheck string `json:"cost_per_check"`
}

// LedgerEntryResponse is one balance movement.
type LedgerEntryResponse struct {
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Reason       string    `json:"reason"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerResponse is the body for GET /account/ledger.
type LedgerResponse struct {
	AccountID string                `json:"account_id"`
	Entries   []LedgerEntryResponse `json:"entries"`
}

// streamLine is one NDJSON line of a streamed batch.
type streamLine struct {
	Type    string         `json:"type"`
	Row     *RowResponse   `json:"row,omitempty"`
	Summary *BatchResponse `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// FromItem converts an engine row to its HTTP shape.
func FromItem(item batch.Item) RowResponse {
	return RowResponse{
		Index:     item.Index,
		Country:   item.ID.CountryCode,
		VatNumber: item.ID.Number,
		Status:    item.Outcome.Status(),
		Name:      item.Outcome.Name,
		Address:   item.Outcome.Address,
		Details:   item.Outcome.Details(),
		Duplicate: item.Duplicate,
		CheckedAt: item.CheckedAt,
	}
}

// FromReport converts a finished batch. The stream summary passes
// withRows=false since its rows were already sent.
func FromReport(report *service.BatchReport, withRows bool) *BatchResponse {
	resp := &BatchResponse{
		BatchID:      report.BatchID.String(),
		Results:      []RowResponse{},
		Skipped:      report.Skipped,
		SkippedCount: len(report.Skipped),
		Charged:      report.Charged.StringFixed(2),
		Balance:      report.Balance.StringFixed(2),
		Partial:      report.Partial,
		Cancelled:    report.Cancelled,
	}
	if resp.Skipped == nil {
		resp.Skipped = []string{}
	}
	if withRows {
		for _, item := range report.Items {
			resp.Results = append(resp.Results, FromItem(item))
		}
	} else {
		resp.Results = nil
	}
	return resp
}

func FromAccount(acct *models.Account, cost string) *BalanceResponse {
	return &BalanceResponse{
		AccountID:    acct.ID.String(),
		Balance:      acct.Balance.StringFixed(2),
		CostPerCheck: cost,
	}
}

func FromEntries(accountID id.AccountID, entries []models.Entry) *LedgerResponse {
	resp := &LedgerResponse{AccountID: accountID.String(), Entries: make([]LedgerEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, LedgerEntryResponse{
			Amount:       e.Amount.StringFixed(2),
			BalanceAfter: e.BalanceAfter.StringFixed(2),
			Reason:       string(e.Reason),
			Reference:    e.Reference,
			CreatedAt:    e.CreatedAt,
		})
	}
	return resp
}
