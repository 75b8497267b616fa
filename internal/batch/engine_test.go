package batch

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks Checker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vatgate/internal/batch/mocks"
	"vatgate/internal/vies/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EngineSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	checker *mocks.MockChecker
	engine  *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.checker = mocks.NewMockChecker(s.ctrl)
	var err error
	s.engine, err = New(s.checker)
	s.Require().NoError(err)
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func valid() models.Outcome {
	return models.Valid("ACME", "Street 1")
}

func (s *EngineSuite) TestDeductsForEveryAdmittedItem() {
	s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).Return(valid()).Times(3)

	var debited []decimal.Decimal
	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"DE1", "FR2", "IT3"},
		Balance: dec("10.00"),
		Cost:    dec("0.05"),
	}, WithDebit(func(_ context.Context, amount, newBalance decimal.Decimal) error {
		debited = append(debited, amount, newBalance)
		return nil
	}))

	s.Require().NoError(err)
	s.Len(res.Items, 3)
	s.Empty(res.Skipped)
	s.False(res.Partial)
	s.Equal("9.85", res.Balance.StringFixed(2))
	s.Equal("0.15", res.Charged.StringFixed(2))
	s.Require().Len(debited, 2)
	s.Equal("0.15", debited[0].StringFixed(2))
	s.Equal("9.85", debited[1].StringFixed(2))
}

func (s *EngineSuite) TestInsufficientCreditMakesNoCalls() {
	debitCalled := false
	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"DE1"},
		Balance: dec("0.03"),
		Cost:    dec("0.05"),
	}, WithDebit(func(context.Context, decimal.Decimal, decimal.Decimal) error {
		debitCalled = true
		return nil
	}))

	s.ErrorIs(err, ErrInsufficientCredit)
	s.Require().NotNil(res)
	s.Empty(res.Items)
	s.Equal([]string{"DE1"}, res.Skipped)
	s.Equal("0.03", res.Balance.StringFixed(2))
	s.False(debitCalled)
}

func (s *EngineSuite) TestPartialBatch() {
	s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).Return(valid()).Times(2)

	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"A1", "B2", "C3", "D4"},
		Balance: dec("0.14"),
		Cost:    dec("0.05"),
	})

	s.Require().NoError(err)
	s.True(res.Partial)
	s.Equal([]string{"C3", "D4"}, res.Skipped)
	s.Equal("0.04", res.Balance.StringFixed(2))
}

func (s *EngineSuite) TestDuplicatesSuppressedButCharged() {
	s.checker.EXPECT().
		Send(gomock.Any(), models.VatIdentifier{CountryCode: "DE", Number: "123"}).
		Return(valid()).Times(1)
	s.checker.EXPECT().
		Send(gomock.Any(), models.VatIdentifier{CountryCode: "FR", Number: "9"}).
		Return(models.Invalid("", "")).Times(1)

	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"DE123", "FR9", "DE123"},
		Balance: dec("10.00"),
		Cost:    dec("0.05"),
	})

	s.Require().NoError(err)
	s.Require().Len(res.Items, 2)
	s.Equal("DE123", res.Items[0].Raw)
	s.Equal("FR9", res.Items[1].Raw)
	s.Equal("9.85", res.Balance.StringFixed(2))
}

func (s *EngineSuite) TestDuplicatesReemitted() {
	engine, err := New(s.checker, WithDuplicatePolicy(ReemitDuplicates))
	s.Require().NoError(err)
	s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).Return(valid()).Times(1)

	var progress []int
	res, err := engine.Run(context.Background(), Request{
		Items:   []string{"DE123", "DE123", "DE123"},
		Balance: dec("1.00"),
		Cost:    dec("0.05"),
	}, WithProgress(func(it Item) { progress = append(progress, it.Index) }))

	s.Require().NoError(err)
	s.Require().Len(res.Items, 3)
	s.False(res.Items[0].Duplicate)
	s.True(res.Items[2].Duplicate)
	s.Equal(2, res.Items[2].Index)
	s.Equal(res.Items[0].Outcome, res.Items[2].Outcome)
	s.Equal([]int{0, 1, 2}, progress)
}

func (s *EngineSuite) TestDuplicateMatchIsExact() {
	s.checker.EXPECT().
		Send(gomock.Any(), models.VatIdentifier{CountryCode: "DE", Number: "123"}).
		Return(valid()).Times(2)

	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"DE123", "de123"},
		Balance: dec("1.00"),
		Cost:    dec("0.05"),
	})

	s.Require().NoError(err)
	s.Len(res.Items, 2)
}

func (s *EngineSuite) TestItemFailureDoesNotAbortBatch() {
	gomock.InOrder(
		s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).Return(models.TransportError("HTTP error: 500")),
		s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).Return(valid()),
	)

	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"X1", "Y2"},
		Balance: dec("1.00"),
		Cost:    dec("0.05"),
	})

	s.Require().NoError(err)
	s.Require().Len(res.Items, 2)
	s.Equal("Error: HTTP error: 500", res.Items[0].Outcome.Status())
	s.Equal("Valid", res.Items[1].Outcome.Status())
	s.Equal("0.90", res.Balance.StringFixed(2))
}

func (s *EngineSuite) TestDebitFailureAbortsBeforeChecks() {
	boom := errors.New("store down")
	res, err := s.engine.Run(context.Background(), Request{
		Items:   []string{"DE1"},
		Balance: dec("1.00"),
		Cost:    dec("0.05"),
	}, WithDebit(func(context.Context, decimal.Decimal, decimal.Decimal) error { return boom }))

	s.ErrorIs(err, boom)
	s.Nil(res)
}

func (s *EngineSuite) TestCancellationBetweenItems() {
	ctx, cancel := context.WithCancel(context.Background())
	s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, models.VatIdentifier) models.Outcome {
			cancel()
			return valid()
		}).Times(1)

	res, err := s.engine.Run(ctx, Request{
		Items:   []string{"A1", "B2", "C3"},
		Balance: dec("1.00"),
		Cost:    dec("0.05"),
	})

	s.ErrorIs(err, context.Canceled)
	s.Require().NotNil(res)
	s.True(res.Cancelled)
	s.Len(res.Items, 1)
	s.Equal("0.85", res.Balance.StringFixed(2))
}

func (s *EngineSuite) TestCancelledBeforeStartIsNotCharged() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	debitCalled := false

	res, err := s.engine.Run(ctx, Request{
		Items:   []string{"DE1"},
		Balance: dec("1.00"),
		Cost:    dec("0.05"),
	}, WithDebit(func(context.Context, decimal.Decimal, decimal.Decimal) error {
		debitCalled = true
		return nil
	}))

	s.ErrorIs(err, context.Canceled)
	s.Require().NotNil(res)
	s.True(res.Cancelled)
	s.Empty(res.Items)
	s.False(debitCalled)
	s.True(res.Charged.IsZero())
	s.Equal("1.00", res.Balance.StringFixed(2))
}

func (s *EngineSuite) TestInvalidCost() {
	_, err := s.engine.Run(context.Background(), Request{Items: []string{"A"}, Balance: dec("1"), Cost: decimal.Zero})
	s.ErrorIs(err, ErrInvalidCost)
}

func (s *EngineSuite) TestCheckedAtFromContextClock() {
	s.checker.EXPECT().Send(gomock.Any(), gomock.Any()).Return(valid())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := contextWithTime(now)

	res, err := s.engine.Run(ctx, Request{Items: []string{"A1"}, Balance: dec("1"), Cost: dec("0.05")})

	s.Require().NoError(err)
	s.Equal(now, res.Items[0].CheckedAt)
}

type slowChecker struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *slowChecker) Send(_ context.Context, id models.VatIdentifier) models.Outcome {
	c.mu.Lock()
	c.calls[id.String()]++
	c.mu.Unlock()
	// later items finish first
	if id.Number == "1" {
		time.Sleep(20 * time.Millisecond)
	}
	return models.Valid(id.String(), "")
}

func TestParallelPreservesOrderAndDedupes(t *testing.T) {
	checker := &slowChecker{calls: map[string]int{}}
	engine, err := New(checker, WithWorkers(4))
	require.NoError(t, err)

	items := []string{"DE1", "FR2", "DE1", "IT3", "FR2", "NL4"}
	res, err := engine.Run(context.Background(), Request{Items: items, Balance: dec("10"), Cost: dec("0.05")})
	require.NoError(t, err)

	got := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		got = append(got, it.Raw)
	}
	assert.Equal(t, []string{"DE1", "FR2", "IT3", "NL4"}, got)
	for vat, n := range checker.calls {
		assert.Equal(t, 1, n, vat)
	}
	assert.Equal(t, "9.70", res.Balance.StringFixed(2))
}
