package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records payment attempts and cart persistence health.
type CheckoutMetrics struct {
	duration    *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	persistence prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "amaia",
		Subsystem: "checkout",
		Name:      "payment_duration_seconds",
		Help:      "Duration of payment attempts in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "amaia",
		Subsystem: "checkout",
		Name:      "submissions_total",
		Help:      "Checkout submissions by outcome.",
	}, []string{"outcome"})
	persistence := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "amaia",
		Subsystem: "cart",
		Name:      "persistence_failures_total",
		Help:      "Cart snapshots that could not be written to storage.",
	})
	reg.MustRegister(duration, submissions, persistence)
	return &CheckoutMetrics{
		duration:    duration,
		submissions: submissions,
		persistence: persistence,
	}
}

// ObservePayment records one payment attempt.
func (c *CheckoutMetrics) ObservePayment(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSubmission counts a checkout submission, including rejected ones.
func (c *CheckoutMetrics) IncSubmission(outcome string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (c *CheckoutMetrics) IncPersistenceFailure() {
	if c == nil || c.persistence == nil {
		return
	}
	c.persistence.Inc()
}
