package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the credit ledger.
type Metrics struct {
	AccountsProvisioned prometheus.Counter
	TopUps              prometheus.Counter
	LockWait            prometheus.Histogram
	LockFailures        *prometheus.CounterVec
}

// New registers the credit metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		AccountsProvisioned: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_credit_accounts_provisioned_total",
			Help: "Accounts created with the initial credit grant",
		}),
		TopUps: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_credit_topups_total",
			Help: "Operator top-ups applied",
		}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vatgate_credit_lock_wait_seconds",
			Help:    "Time spent acquiring the per-account metering lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		LockFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vatgate_credit_lock_failures_total",
			Help: "Per-account lock acquisitions that failed, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementAccountsProvisioned() {
	m.AccountsProvisioned.Inc()
}

func (m *Metrics) IncrementTopUps() {
	m.TopUps.Inc()
}

// ObserveLockWait records lock acquisition latency.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLockWait(start time.Time) {
	m.LockWait.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementLockFailures(reason string) {
	m.LockFailures.WithLabelValues(reason).Inc()
}
