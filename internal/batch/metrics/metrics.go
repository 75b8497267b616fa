package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks batch metering decisions.
type Metrics struct {
	Batches             *prometheus.CounterVec
	ItemsChecked        prometheus.Counter
	ItemsSkipped        prometheus.Counter
	DuplicatesCollapsed prometheus.Counter
	CreditCharged       prometheus.Counter
	RunDuration         prometheus.Histogram
}

// New registers the batch metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vatgate_batches_total",
			Help: "Total number of batches, by result (completed, partial, cancelled, rejected)",
		}, []string{"result"}),
		ItemsChecked: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_batch_items_checked_total",
			Help: "Identifiers sent to VIES by the batch engine",
		}),
		ItemsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_batch_items_skipped_total",
			Help: "Identifiers skipped because the balance could not cover them",
		}),
		DuplicatesCollapsed: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_batch_duplicates_total",
			Help: "Repeated identifiers answered from the in-batch cache",
		}),
		CreditCharged: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_credit_charged_total",
			Help: "Total credit deducted by batches",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vatgate_batch_run_duration_seconds",
			Help:    "Duration of Engine.Run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
}

func (m *Metrics) IncrementBatches(result string) {
	m.Batches.WithLabelValues(result).Inc()
}

func (m *Metrics) AddItemsChecked(n int) {
	m.ItemsChecked.Add(float64(n))
}

func (m *Metrics) AddItemsSkipped(n int) {
	m.ItemsSkipped.Add(float64(n))
}

func (m *Metrics) AddDuplicates(n int) {
	m.DuplicatesCollapsed.Add(float64(n))
}

func (m *Metrics) AddCreditCharged(amount float64) {
	m.CreditCharged.Add(amount)
}

// ObserveRun records the duration of a batch run.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRun(start time.Time) {
	m.RunDuration.Observe(time.Since(start).Seconds())
}
