package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"vatgate/internal/batch"
	"vatgate/internal/credit/models"
	"vatgate/internal/credit/service"
	id "vatgate/pkg/domain"
	dErrors "vatgate/pkg/domain-errors"
	"vatgate/pkg/platform/httputil"
	"vatgate/pkg/requestcontext"
)

const (
	contentTypeNDJSON  = "application/x-ndjson"
	defaultLedgerLimit = 50
	maxLedgerLimit     = 500
)

// Service defines the credit operations the handler exposes.
type Service interface {
	CostPerCheck() decimal.Decimal
	Balance(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	Ledger(ctx context.Context, accountID id.AccountID, limit int) ([]models.Entry, error)
	TopUp(ctx context.Context, accountID id.AccountID, amount decimal.Decimal, actorID string) (*models.Account, error)
	CheckOne(ctx context.Context, accountID id.AccountID, country, number string, opts ...batch.RunOption) (*service.BatchReport, error)
	RunBatch(ctx context.Context, accountID id.AccountID, items []string, opts ...batch.RunOption) (*service.BatchReport, error)
}

// Handler wires VAT check and account endpoints to the credit service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the account-scoped endpoints. The router must run the auth
// middleware in front of them.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vat/check", h.HandleCheck)
	r.Post("/vat/batch", h.HandleBatch)
	r.Get("/account/credit", h.HandleBalance)
	r.Get("/account/ledger", h.HandleLedger)
}

// RegisterAdmin mounts operator endpoints behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/accounts/{id}/topup", h.HandleTopUp)
}

// HandleCheck handles POST /vat/check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.requireAccount(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.service.CheckOne(ctx, accountID, req.Country, req.Number)
	if err != nil {
		h.fail(ctx, w, "vat check failed", accountID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReport(report, true))
}

// HandleBatch handles POST /vat/batch requests. With Accept:
// application/x-ndjson each row is written and flushed as it completes,
// followed by a summary line.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	accountID, ok := h.requireAccount(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger)
	if !ok {
		return
	}

	if strings.Contains(r.Header.Get("Accept"), contentTypeNDJSON) {
		h.streamBatch(w, r, accountID, req.Items())
		return
	}

	report, err := h.service.RunBatch(ctx, accountID, req.Items())
	if err != nil {
		h.fail(ctx, w, "vat batch failed", accountID, err)
		return
	}
	h.logger.InfoContext(ctx, "vat batch completed",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", accountID.String(),
		"batch_id", report.BatchID.String(),
		"items", len(req.Items()),
		"checked", len(report.Items),
		"skipped", len(report.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromReport(report, true))
}

func (h *Handler) streamBatch(w http.ResponseWriter, r *http.Request, accountID id.AccountID, items []string) {
	ctx := r.Context()
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", contentTypeNDJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
	}
	writeLine := func(line streamLine) {
		begin()
		if err := enc.Encode(line); err != nil {
			h.logger.DebugContext(ctx, "stream write failed", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	// The engine serializes progress calls.
	progress := func(item batch.Item) {
		row := FromItem(item)
		writeLine(streamLine{Type: "row", Row: &row})
	}

	report, err := h.service.RunBatch(ctx, accountID, items, batch.WithProgress(progress))
	if err != nil && !started {
		h.fail(ctx, w, "vat batch failed", accountID, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "vat batch ended early",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", accountID.String(),
			"error", err,
		)
		writeLine(streamLine{Type: "error", Error: string(dErrors.CodeOf(err))})
	}
	if report != nil && report.Result != nil {
		writeLine(streamLine{Type: "summary", Summary: FromReport(report, false)})
	}
}

// HandleBalance handles GET /account/credit requests.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.requireAccount(w, r)
	if !ok {
		return
	}
	acct, err := h.service.Balance(ctx, accountID)
	if err != nil {
		h.fail(ctx, w, "balance lookup failed", accountID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(acct, h.service.CostPerCheck().StringFixed(2)))
}

// HandleLedger handles GET /account/ledger?limit=N requests.
func (h *Handler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.requireAccount(w, r)
	if !ok {
		return
	}
	limit := defaultLedgerLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLedgerLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	entries, err := h.service.Ledger(ctx, accountID, limit)
	if err != nil {
		h.fail(ctx, w, "ledger lookup failed", accountID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(accountID, entries))
}

// HandleTopUp handles POST /admin/accounts/{id}/topup requests.
func (h *Handler) HandleTopUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TopUpRequest](w, r, h.logger)
	if !ok {
		return
	}

	acct, err := h.service.TopUp(ctx, accountID, req.ParsedAmount(), req.Actor)
	if err != nil {
		h.fail(ctx, w, "top-up failed", accountID, err)
		return
	}
	h.logger.InfoContext(ctx, "account topped up",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", accountID.String(),
		"amount", req.ParsedAmount().StringFixed(2),
		"actor", req.Actor,
	)
	httputil.WriteJSON(w, http.StatusOK, FromAccount(acct, h.service.CostPerCheck().StringFixed(2)))
}

func (h *Handler) requireAccount(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	accountID := requestcontext.AccountID(r.Context())
	if accountID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return accountID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, accountID id.AccountID, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"account_id", accountID.String(),
		"error", err,
	)
	httputil.WriteError(w, err)
}
