// Package batch meters a list of raw VAT strings against a credit balance and
// checks the affordable prefix through a Checker.
//
// The deduction is write-ahead: the full cost of every admitted item is
// computed and handed to the debit hook before the first network call, and
// is never refunded when individual checks fail.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vatgate/internal/batch/metrics"
	"vatgate/internal/vies/models"
	"vatgate/pkg/requestcontext"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Checker performs a single VAT check. *vies.Client satisfies it.
type Checker interface {
	Send(ctx context.Context, id models.VatIdentifier) models.Outcome
}

// DebitFunc persists the write-ahead deduction. A non-nil error aborts the
// batch before any check runs.
type DebitFunc func(ctx context.Context, amount, newBalance decimal.Decimal) error

// ProgressFunc observes each row as it is produced.
type ProgressFunc func(Item)

// Engine runs metered batches. It holds no per-batch state and is safe for
// concurrent use.
type Engine struct {
	checker Checker
	workers int
	policy  DuplicatePolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Engine)

// WithWorkers enables bounded parallel dispatch. Values below 2 keep the
// sequential path.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New builds an Engine around checker.
func New(checker Checker, opts ...Option) (*Engine, error) {
	if checker == nil {
		return nil, errors.New("checker is required")
	}
	e := &Engine{
		checker: checker,
		workers: 1,
		policy:  SuppressDuplicates,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type runConfig struct {
	progress ProgressFunc
	debit    DebitFunc
}

type RunOption func(*runConfig)

// WithProgress registers a callback invoked once per emitted row. In parallel
// mode calls are serialized but arrive in completion order.
func WithProgress(fn ProgressFunc) RunOption {
	return func(c *runConfig) {
		c.progress = fn
	}
}

// WithDebit registers the write-ahead deduction hook.
func WithDebit(fn DebitFunc) RunOption {
	return func(c *runConfig) {
		c.debit = fn
	}
}

// Run meters req and checks the affordable prefix.
//
// When nothing is affordable it returns a Result with every item skipped and
// ErrInsufficientCredit. When ctx ends between items it returns the rows
// completed so far with Cancelled set, together with the context error.
func (e *Engine) Run(ctx context.Context, req Request, opts ...RunOption) (*Result, error) {
	start := time.Now()
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if e.metrics != nil {
		defer e.metrics.ObserveRun(start)
	}

	plan, err := NewPlan(req)
	if errors.Is(err, ErrInsufficientCredit) {
		e.logger.WarnContext(ctx, "batch rejected: insufficient credit",
			"balance", req.Balance.StringFixed(2),
			"cost", req.Cost.String(),
			"items", len(req.Items),
		)
		e.record("rejected", 0, len(plan.Skipped), 0, decimal.Zero)
		return &Result{Skipped: plan.Skipped, Charged: decimal.Zero, Balance: req.Balance}, err
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Skipped: plan.Skipped,
		Charged: plan.Charged,
		Balance: plan.NewBalance,
		Partial: len(plan.Skipped) > 0,
	}
	if len(plan.ToProcess) == 0 {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		e.record("cancelled", 0, len(plan.Skipped), 0, decimal.Zero)
		return &Result{Skipped: plan.Skipped, Charged: decimal.Zero, Balance: req.Balance, Cancelled: true}, ctxErr
	}
	if cfg.debit != nil {
		if err := cfg.debit(ctx, plan.Charged, plan.NewBalance); err != nil {
			return nil, fmt.Errorf("debit batch: %w", err)
		}
	}
	if res.Partial {
		e.logger.WarnContext(ctx, "partial batch: balance covers only a prefix",
			"processed", len(plan.ToProcess),
			"skipped", len(plan.Skipped),
		)
	}

	var checked int
	if e.workers > 1 {
		res.Items, checked = e.runParallel(ctx, plan.ToProcess, cfg.progress)
	} else {
		res.Items, checked = e.runSequential(ctx, plan.ToProcess, cfg.progress)
	}

	duplicates := len(plan.ToProcess) - checked
	if ctxErr := ctx.Err(); ctxErr != nil && e.unfinished(plan.ToProcess, res.Items) {
		res.Cancelled = true
		e.logger.WarnContext(ctx, "batch cancelled", "completed", len(res.Items), "admitted", len(plan.ToProcess))
		e.record("cancelled", checked, len(plan.Skipped), 0, plan.Charged)
		return res, ctxErr
	}

	result := "completed"
	if res.Partial {
		result = "partial"
	}
	e.record(result, checked, len(plan.Skipped), duplicates, plan.Charged)
	return res, nil
}

// unfinished reports whether some admitted item produced no row for a reason
// other than duplicate suppression.
func (e *Engine) unfinished(toProcess []string, items []Item) bool {
	expected := len(toProcess)
	if e.policy == SuppressDuplicates {
		expected = len(distinct(toProcess))
	}
	return len(items) < expected
}

func (e *Engine) runSequential(ctx context.Context, toProcess []string, progress ProgressFunc) ([]Item, int) {
	items := make([]Item, 0, len(toProcess))
	seen := make(map[string]int, len(toProcess))
	checked := 0

	for i, raw := range toProcess {
		if first, ok := seen[raw]; ok {
			if e.policy == ReemitDuplicates {
				items = append(items, repeat(items[first], i))
				emit(progress, items[len(items)-1])
			}
			continue
		}
		if ctx.Err() != nil {
			break
		}
		item := e.check(ctx, i, raw)
		checked++
		seen[raw] = len(items)
		items = append(items, item)
		emit(progress, item)
	}
	return items, checked
}

// runParallel dispatches first occurrences to a bounded pool and assembles the
// rows in submission order.
func (e *Engine) runParallel(ctx context.Context, toProcess []string, progress ProgressFunc) ([]Item, int) {
	firsts := distinct(toProcess)
	slots := make([]*Item, len(toProcess))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, i := range firsts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			item := e.check(ctx, i, toProcess[i])
			mu.Lock()
			slots[i] = &item
			emit(progress, item)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	items := make([]Item, 0, len(toProcess))
	firstOf := make(map[string]int, len(firsts))
	checked := 0
	for i, raw := range toProcess {
		if slot := slots[i]; slot != nil {
			firstOf[raw] = len(items)
			items = append(items, *slot)
			checked++
			continue
		}
		first, ok := firstOf[raw]
		if !ok || e.policy != ReemitDuplicates {
			continue
		}
		items = append(items, repeat(items[first], i))
		emit(progress, items[len(items)-1])
	}
	return items, checked
}

func (e *Engine) check(ctx context.Context, index int, raw string) Item {
	id := models.Parse(raw)
	out := e.checker.Send(ctx, id)
	if out.IsError() {
		e.logger.InfoContext(ctx, "vat check returned no verdict",
			"vat", id.String(),
			"status", out.Status(),
		)
	}
	return Item{
		Index:     index,
		Raw:       raw,
		ID:        id,
		Outcome:   out,
		CheckedAt: requestcontext.Now(ctx),
	}
}

func (e *Engine) record(result string, checked, skipped, duplicates int, charged decimal.Decimal) {
	if e.metrics == nil {
		return
	}
	e.metrics.IncrementBatches(result)
	e.metrics.AddItemsChecked(checked)
	e.metrics.AddItemsSkipped(skipped)
	e.metrics.AddDuplicates(duplicates)
	e.metrics.AddCreditCharged(charged.InexactFloat64())
}

// distinct returns the index of the first occurrence of each raw string.
func distinct(items []string) []int {
	seen := make(map[string]struct{}, len(items))
	out := make([]int, 0, len(items))
	for i, raw := range items {
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, i)
	}
	return out
}

func repeat(first Item, index int) Item {
	first.Index = index
	first.Duplicate = true
	return first
}

func emit(progress ProgressFunc, item Item) {
	if progress != nil {
		progress(item)
	}
}
