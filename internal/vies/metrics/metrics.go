package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for outbound VIES calls.
type Metrics struct {
	Attempts     prometheus.Counter
	Retries      *prometheus.CounterVec
	Outcomes     *prometheus.CounterVec
	SendDuration prometheus.Histogram
}

// New registers the VIES metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounter(prometheus.CounterOpts{
			Name: "vatgate_vies_attempts_total",
			Help: "Total number of HTTP attempts made against VIES",
		}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vatgate_vies_retries_total",
			Help: "Total number of retries scheduled, by reason",
		}, []string{"reason"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vatgate_vies_outcomes_total",
			Help: "Terminal outcomes of VIES checks, by kind",
		}, []string{"kind"}),
		SendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vatgate_vies_send_duration_seconds",
			Help:    "Duration of a full VIES check including retries and backoff",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

func (m *Metrics) IncrementAttempts() {
	m.Attempts.Inc()
}

func (m *Metrics) IncrementRetries(reason string) {
	m.Retries.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementOutcome(kind string) {
	m.Outcomes.WithLabelValues(kind).Inc()
}

// ObserveSend records the duration of a Send call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSend(start time.Time) {
	m.SendDuration.Observe(time.Since(start).Seconds())
}
