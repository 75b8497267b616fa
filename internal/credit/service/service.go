// Package service owns per-account credit: provisioning, top-ups and the
// metered batch flow that locks an account, debits it and runs the checks.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vatgate/internal/batch"
	"vatgate/internal/credit/lock"
	"vatgate/internal/credit/metrics"
	"vatgate/internal/credit/models"
	id "vatgate/pkg/domain"
	dErrors "vatgate/pkg/domain-errors"
	audit "vatgate/pkg/platform/audit"
	"vatgate/pkg/platform/sentinel"
	"vatgate/pkg/requestcontext"

	"github.com/shopspring/decimal"
)

// Store persists balances and the ledger.
type Store interface {
	Get(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	Create(ctx context.Context, accountID id.AccountID, initial decimal.Decimal, now time.Time) (*models.Account, error)
	Debit(ctx context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error)
	Credit(ctx context.Context, accountID id.AccountID, m models.Movement) (*models.Account, error)
	Entries(ctx context.Context, accountID id.AccountID, limit int) ([]models.Entry, error)
}

// Transactor runs fn atomically. Stores and the audit outbox join the
// transaction carried in ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BatchRunner is the metering engine.
type BatchRunner interface {
	Run(ctx context.Context, req batch.Request, opts ...batch.RunOption) (*batch.Result, error)
}

// AuditPublisher records credit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds the metering parameters.
type Config struct {
	CostPerCheck  decimal.Decimal
	InitialCredit decimal.Decimal
	LockTTL       time.Duration
	LockWait      time.Duration
}

// DefaultConfig matches the hosted product: 10.00 of starting credit at 0.05
// per check.
func DefaultConfig() Config {
	return Config{
		CostPerCheck:  decimal.RequireFromString("0.05"),
		InitialCredit: decimal.RequireFromString("10.00"),
		LockTTL:       30 * time.Second,
		LockWait:      5 * time.Second,
	}
}

// BatchReport is a finished batch with its identity.
type BatchReport struct {
	BatchID   id.BatchID
	AccountID id.AccountID
	*batch.Result
}

type Service struct {
	store     Store
	locker    lock.Locker
	engine    BatchRunner
	tx        Transactor
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cfg       Config
}

type Option func(*Service)

func WithTransactor(tx Transactor) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(store Store, locker lock.Locker, engine BatchRunner, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credit store is required")
	}
	if locker == nil {
		return nil, errors.New("locker is required")
	}
	if engine == nil {
		return nil, errors.New("batch engine is required")
	}
	s := &Service{
		store:  store,
		locker: locker,
		engine: engine,
		tx:     passthroughTx{},
		logger: slog.New(slog.DiscardHandler),
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.cfg.CostPerCheck.IsPositive() {
		return nil, errors.New("cost per check must be positive")
	}
	if s.cfg.InitialCredit.IsNegative() {
		return nil, errors.New("initial credit cannot be negative")
	}
	return s, nil
}

// CostPerCheck is the price of one admitted identifier.
func (s *Service) CostPerCheck() decimal.Decimal {
	return s.cfg.CostPerCheck
}

// Balance returns the account, provisioning it with the initial grant on
// first use.
func (s *Service) Balance(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	acct, err := s.ensureAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit account")
	}
	return acct, nil
}

// Ledger lists the latest balance movements, newest first.
func (s *Service) Ledger(ctx context.Context, accountID id.AccountID, limit int) ([]models.Entry, error) {
	if _, err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit account")
	}
	entries, err := s.store.Entries(ctx, accountID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger")
	}
	return entries, nil
}

// TopUp adds amount to the account. actorID names the operator.
func (s *Service) TopUp(ctx context.Context, accountID id.AccountID, amount decimal.Decimal, actorID string) (*models.Account, error) {
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "top-up amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "top-up amount has more than two decimals")
	}
	if _, err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit account")
	}

	acct, err := s.store.Credit(ctx, accountID, models.Movement{
		Amount: amount,
		Reason: models.ReasonTopUp,
		At:     requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to top up account")
	}
	if s.metrics != nil {
		s.metrics.IncrementTopUps()
	}
	s.emitBestEffort(ctx, audit.Event{
		Action:    audit.ActionCreditToppedUp,
		AccountID: accountID,
		ActorID:   actorID,
		Credited:  amount,
		Balance:   acct.Balance,
	})
	return acct, nil
}

// CheckOne meters and checks a single identifier given as country and number.
func (s *Service) CheckOne(ctx context.Context, accountID id.AccountID, country, number string, opts ...batch.RunOption) (*BatchReport, error) {
	return s.RunBatch(ctx, accountID, []string{strings.TrimSpace(country) + number}, opts...)
}

// RunBatch meters items against the account balance and checks the
// affordable prefix.
//
// The account lock covers the balance read and the debit only; checks run
// after the lock is released. The debit and its credit_debited audit event
// commit together or not at all.
func (s *Service) RunBatch(ctx context.Context, accountID id.AccountID, items []string, opts ...batch.RunOption) (*BatchReport, error) {
	report := &BatchReport{BatchID: id.NewBatchID(), AccountID: accountID}
	if _, err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit account")
	}

	unlock, err := s.acquire(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acct, err := s.store.Get(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}

	var settled *models.Account
	debit := func(ctx context.Context, amount, newBalance decimal.Decimal) error {
		defer unlock()
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			updated, err := s.store.Debit(ctx, accountID, models.Movement{
				Amount:    amount,
				Reason:    models.ReasonBatch,
				Reference: report.BatchID.String(),
				At:        requestcontext.Now(ctx),
			})
			if err != nil {
				return err
			}
			settled = updated
			if s.publisher == nil {
				return nil
			}
			return s.publisher.Emit(ctx, audit.Event{
				Action:    audit.ActionCreditDebited,
				AccountID: accountID,
				BatchID:   report.BatchID,
				RequestID: requestcontext.RequestID(ctx),
				Items:     len(items),
				Charged:   amount,
				Balance:   updated.Balance,
			})
		})
		if errors.Is(err, models.ErrInsufficientBalance) {
			return dErrors.Wrap(err, dErrors.CodeInsufficientCredit, "balance changed before debit")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit account")
		}
		s.logger.InfoContext(ctx, "credit debited",
			"account_id", accountID.String(),
			"batch_id", report.BatchID.String(),
			"amount", amount.StringFixed(2),
			"balance", settled.Balance.StringFixed(2),
		)
		return nil
	}

	res, err := s.engine.Run(ctx, batch.Request{
		Items:   items,
		Balance: acct.Balance,
		Cost:    s.cfg.CostPerCheck,
	}, append(opts, batch.WithDebit(debit))...)
	report.Result = res

	switch {
	case errors.Is(err, batch.ErrInsufficientCredit):
		s.emitBestEffort(ctx, audit.Event{
			Action:    audit.ActionBatchRejected,
			AccountID: accountID,
			BatchID:   report.BatchID,
			Items:     len(items),
			Skipped:   len(items),
			Charged:   decimal.Zero,
			Balance:   acct.Balance,
			Reason:    "insufficient_credit",
		})
		return report, err
	case res == nil:
		return nil, err
	}

	if settled != nil {
		res.Balance = settled.Balance
	}
	event := audit.Event{
		Action:    audit.ActionBatchCompleted,
		AccountID: accountID,
		BatchID:   report.BatchID,
		Items:     len(items),
		Checked:   len(res.Items),
		Skipped:   len(res.Skipped),
		Charged:   res.Charged,
		Balance:   res.Balance,
	}
	switch {
	case res.Cancelled:
		event.Reason = "cancelled"
	case res.Partial:
		event.Reason = "partial"
	}
	s.emitBestEffort(ctx, event)

	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeTimeout, "batch interrupted")
	}
	return report, nil
}

// acquire takes the account lock and returns an idempotent unlock.
func (s *Service) acquire(ctx context.Context, accountID id.AccountID) (func(), error) {
	start := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, "credit:"+accountID.String(), s.cfg.LockTTL)
	if s.metrics != nil {
		s.metrics.ObserveLockWait(start)
	}
	if err != nil {
		reason := "error"
		code := dErrors.CodeInternal
		msg := "failed to lock account"
		switch {
		case errors.Is(err, sentinel.ErrLocked):
			reason, code, msg = "contended", dErrors.CodeConflict, "another batch for this account is being metered"
		case errors.Is(err, sentinel.ErrUnavailable):
			reason, code, msg = "unavailable", dErrors.CodeUnavailable, "account lock unavailable"
		}
		if s.metrics != nil {
			s.metrics.IncrementLockFailures(reason)
		}
		return nil, dErrors.Wrap(err, code, msg)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer relCancel()
		if err := release(relCtx); err != nil {
			s.logger.WarnContext(ctx, "failed to release account lock",
				"account_id", accountID.String(),
				"error", err,
			)
		}
	}, nil
}

func (s *Service) ensureAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	acct, err := s.store.Get(ctx, accountID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	acct, err = s.store.Create(ctx, accountID, s.cfg.InitialCredit, requestcontext.Now(ctx))
	if errors.Is(err, sentinel.ErrConflict) {
		return s.store.Get(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementAccountsProvisioned()
	}
	s.logger.InfoContext(ctx, "credit account provisioned",
		"account_id", accountID.String(),
		"balance", acct.Balance.StringFixed(2),
	)
	return acct, nil
}

// emitBestEffort publishes operational events; failures are logged only.
func (s *Service) emitBestEffort(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"account_id", event.AccountID.String(),
			"error", err,
		)
	}
}

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
