package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vatgate/internal/batch"
	batchmocks "vatgate/internal/batch/mocks"
	"vatgate/internal/credit/handler/mocks"
	"vatgate/internal/credit/lock"
	"vatgate/internal/credit/models"
	"vatgate/internal/credit/service"
	"vatgate/internal/credit/store"
	vmodels "vatgate/internal/vies/models"
	id "vatgate/pkg/domain"
	dErrors "vatgate/pkg/domain-errors"
	"vatgate/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const acme id.AccountID = "acme"

var checkedAt = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.DiscardHandler))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterAdmin(s.router)
}

func report(items ...batch.Item) *service.BatchReport {
	return &service.BatchReport{
		BatchID:   id.NewBatchID(),
		AccountID: acme,
		Result: &batch.Result{
			Items:   items,
			Charged: decimal.RequireFromString("0.05").Mul(decimal.NewFromInt(int64(len(items)))),
			Balance: decimal.RequireFromString("9.90"),
		},
	}
}

func (s *HandlerSuite) TestCheckReturnsRow() {
	s.service.EXPECT().CheckOne(gomock.Any(), acme, "DE", "123456789").Return(report(batch.Item{
		ID:        vmodels.VatIdentifier{CountryCode: "DE", Number: "123456789"},
		Outcome:   vmodels.Valid("ACME GmbH", "Hauptstr. 1"),
		CheckedAt: checkedAt,
	}), nil)

	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/check",
		CheckRequest{Country: " DE ", Number: "123456789"}), "acme")
	rr := testutil.DoRequest(s.router, req)

	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[BatchResponse](s.T(), rr)
	s.Require().Len(resp.Results, 1)
	row := resp.Results[0]
	s.Equal("DE", row.Country)
	s.Equal("123456789", row.VatNumber)
	s.Equal("Valid", row.Status)
	s.Equal("ACME GmbH", row.Name)
	s.Equal(checkedAt, row.CheckedAt)
	s.Equal("9.90", resp.Balance)
}

func (s *HandlerSuite) TestCheckRequiresAuthentication() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/check", CheckRequest{Country: "DE", Number: "1"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestCheckValidatesBody() {
	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/check",
		CheckRequest{Country: "DE"}), "acme")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func (s *HandlerSuite) TestBatchMergesListAndText() {
	s.service.EXPECT().
		RunBatch(gomock.Any(), acme, []string{"DE1", "FR2", "IT3", "DE1"}).
		Return(report(), nil)

	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/batch", BatchRequest{
		VatNumbers: []string{" DE1 ", ""},
		Text:       "FR2\r\n\n  IT3\nDE1",
	}), "acme")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[BatchResponse](s.T(), rr)
	s.NotNil(resp.Results)
	s.Equal([]string{}, resp.Skipped)
}

func (s *HandlerSuite) TestBatchInsufficientCreditIs402() {
	s.service.EXPECT().RunBatch(gomock.Any(), acme, []string{"DE1"}).
		Return(nil, dErrors.New(dErrors.CodeInsufficientCredit, "insufficient credit to perform any checks"))

	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/batch",
		BatchRequest{VatNumbers: []string{"DE1"}}), "acme")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusPaymentRequired, "insufficient_credit")
}

func (s *HandlerSuite) TestBatchLockContentionIs409() {
	s.service.EXPECT().RunBatch(gomock.Any(), acme, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "another batch for this account is being metered"))

	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/batch",
		BatchRequest{Text: "DE1"}), "acme")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *HandlerSuite) TestBatchRejectsOversizedInput() {
	items := make([]string, maxBatchItems+1)
	for i := range items {
		items[i] = "DE1"
	}
	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/batch",
		BatchRequest{VatNumbers: items}), "acme")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestBalance() {
	s.service.EXPECT().Balance(gomock.Any(), acme).Return(&models.Account{
		ID:      acme,
		Balance: decimal.RequireFromString("7.5"),
	}, nil)
	s.service.EXPECT().CostPerCheck().Return(decimal.RequireFromString("0.05"))

	rr := testutil.DoRequest(s.router, testutil.WithAccount(testutil.NewRequestWithBody(http.MethodGet, "/account/credit", ""), "acme"))

	s.Require().Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[BalanceResponse](s.T(), rr)
	s.Equal("acme", resp.AccountID)
	s.Equal("7.50", resp.Balance)
	s.Equal("0.05", resp.CostPerCheck)
}

func (s *HandlerSuite) TestLedger() {
	s.service.EXPECT().Ledger(gomock.Any(), acme, 2).Return([]models.Entry{
		{Amount: decimal.RequireFromString("-0.15"), BalanceAfter: decimal.RequireFromString("9.85"), Reason: models.ReasonBatch, Reference: "b-1"},
		{Amount: decimal.RequireFromString("10"), BalanceAfter: decimal.RequireFromString("10"), Reason: models.ReasonInitial},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithAccount(testutil.NewRequestWithBody(http.MethodGet, "/account/ledger?limit=2", ""), "acme"))

	s.Require().Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[LedgerResponse](s.T(), rr)
	s.Require().Len(resp.Entries, 2)
	s.Equal("-0.15", resp.Entries[0].Amount)
	s.Equal("batch_debit", resp.Entries[0].Reason)
	s.Equal("10.00", resp.Entries[1].BalanceAfter)
}

func (s *HandlerSuite) TestBatchRejectsEmptyInputBeforeCreditCheck() {
	req := testutil.WithAccount(testutil.NewJSONRequest(s.T(), http.MethodPost, "/vat/batch",
		BatchRequest{VatNumbers: []string{" ", ""}, Text: "\n  \n"}), "acme")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	s.Contains(rr.Body.String(), "no VAT numbers provided")
}

func (s *HandlerSuite) TestLedgerRejectsBadLimit() {
	rr := testutil.DoRequest(s.router, testutil.WithAccount(testutil.NewRequestWithBody(http.MethodGet, "/account/ledger?limit=0", ""), "acme"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func (s *HandlerSuite) TestTopUp() {
	s.service.EXPECT().
		TopUp(gomock.Any(), id.AccountID("globex"), decimal.RequireFromString("5.00"), "ops@example.com").
		Return(&models.Account{ID: "globex", Balance: decimal.RequireFromString("15")}, nil)
	s.service.EXPECT().CostPerCheck().Return(decimal.RequireFromString("0.05"))

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/accounts/globex/topup",
		TopUpRequest{Amount: "5.00", Actor: "ops@example.com"}))

	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal("15.00", testutil.UnmarshalResponse[BalanceResponse](s.T(), rr).Balance)
}

func (s *HandlerSuite) TestTopUpRejectsNonDecimal() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/accounts/globex/topup",
		TopUpRequest{Amount: "lots"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func (s *HandlerSuite) TestTopUpServiceValidation() {
	s.service.EXPECT().TopUp(gomock.Any(), id.AccountID("globex"), gomock.Any(), "admin").
		Return(nil, dErrors.New(dErrors.CodeInvalidInput, "top-up amount must be positive"))

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/accounts/globex/topup",
		TopUpRequest{Amount: "-1"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

// newRealService wires the credit service on in-memory stores so streaming
// sees real progress callbacks.
func newRealService(t *testing.T, checker batch.Checker, balance string) *service.Service {
	t.Helper()
	engine, err := batch.New(checker)
	require.NoError(t, err)
	st := store.NewInMemory()
	_, err = st.Create(context.Background(), acme, decimal.RequireFromString(balance), time.Now())
	require.NoError(t, err)
	svc, err := service.New(st, lock.NewMemory(), engine)
	require.NoError(t, err)
	return svc
}

func TestStreamBatch(t *testing.T) {
	testutil.Given(t, "an account that can afford two of three checks", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		checker := batchmocks.NewMockChecker(ctrl)
		checker.EXPECT().Send(gomock.Any(), vmodels.VatIdentifier{CountryCode: "DE", Number: "1"}).Return(vmodels.Valid("A", "B"))
		checker.EXPECT().Send(gomock.Any(), vmodels.VatIdentifier{CountryCode: "FR", Number: "2"}).Return(vmodels.TransportError("Timeout after 120 seconds"))

		h := New(newRealService(t, checker, "0.10"), nil)
		r := chi.NewRouter()
		h.Register(r)

		testutil.When(t, "the client asks for NDJSON", func(t *testing.T) {
			req := testutil.WithRequestTime(testutil.WithAccount(testutil.NewJSONRequest(t, http.MethodPost, "/vat/batch",
				BatchRequest{Text: "DE1\nFR2\nIT3"}), "acme"), checkedAt)
			req.Header.Set("Accept", "application/x-ndjson")
			rr := testutil.DoRequest(r, req)

			testutil.Then(t, "rows stream before a summary", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, "application/x-ndjson", rr.Header().Get("Content-Type"))

				lines := testutil.ReadNDJSON[streamLine](t, rr)
				require.Len(t, lines, 3)
				assert.Equal(t, "row", lines[0].Type)
				assert.Equal(t, "Valid", lines[0].Row.Status)
				assert.Equal(t, "Error: Timeout after 120 seconds", lines[1].Row.Status)
				assert.Equal(t, checkedAt, lines[1].Row.CheckedAt)

				summary := lines[2]
				assert.Equal(t, "summary", summary.Type)
				require.NotNil(t, summary.Summary)
				assert.Nil(t, summary.Summary.Results)
				assert.Equal(t, []string{"IT3"}, summary.Summary.Skipped)
				assert.True(t, summary.Summary.Partial)
				assert.Equal(t, "0.10", summary.Summary.Charged)
				assert.Equal(t, "0.00", summary.Summary.Balance)
			})
		})
	})

	testutil.Given(t, "an account with no affordable checks", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		checker := batchmocks.NewMockChecker(ctrl)
		h := New(newRealService(t, checker, "0.01"), nil)
		r := chi.NewRouter()
		h.Register(r)

		req := testutil.WithAccount(testutil.NewJSONRequest(t, http.MethodPost, "/vat/batch",
			BatchRequest{Text: "DE1"}), "acme")
		req.Header.Set("Accept", "application/x-ndjson")
		rr := testutil.DoRequest(r, req)

		testutil.Then(t, "the stream never starts and the status is 402", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusPaymentRequired, "insufficient_credit")
		})
	})
}

func TestStreamBatchCancelledMidway(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := batchmocks.NewMockChecker(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	checker.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, vmodels.VatIdentifier) vmodels.Outcome {
			cancel()
			return vmodels.Invalid("", "")
		})

	h := New(newRealService(t, checker, "1.00"), nil)
	r := chi.NewRouter()
	h.Register(r)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/vat/batch", BatchRequest{Text: "DE1\nFR2"})
	req = testutil.WithAccount(req.WithContext(ctx), "acme")
	req.Header.Set("Accept", "application/x-ndjson")
	rr := testutil.DoRequest(r, req)

	lines := testutil.ReadNDJSON[streamLine](t, rr)
	require.Len(t, lines, 3)
	assert.Equal(t, "row", lines[0].Type)
	assert.Equal(t, "error", lines[1].Type)
	assert.Equal(t, "timeout", lines[1].Error)
	assert.True(t, lines[2].Summary.Cancelled)
	assert.Equal(t, "0.10", lines[2].Summary.Charged)
}

func TestFromItemErrorRowHasNoDetails(t *testing.T) {
	row := FromItem(batch.Item{
		ID:      vmodels.Parse("nl 123"),
		Outcome: vmodels.ServiceFault("MS_UNAVAILABLE"),
	})
	assert.Equal(t, "NL", row.Country)
	assert.Equal(t, "MS_UNAVAILABLE", row.Status)
	assert.Empty(t, row.Details)
}
