package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Trigger outcome labels.
const (
	OutcomeSucceeded        = "succeeded"
	OutcomeNotFound         = "not_found"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeInFlight         = "in_flight"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeProviderError    = "provider_error"
	OutcomeUnknown          = "unknown_outcome"
)

// PayoutMetrics records payout trigger and ledger aggregation activity.
type PayoutMetrics struct {
	triggers          *prometheus.CounterVec
	triggerDuration   prometheus.Histogram
	inFlight          prometheus.Gauge
	aggregateDuration *prometheus.HistogramVec
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	triggers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_trigger_total",
		Help: "Payout trigger attempts by outcome.",
	}, []string{"outcome"})
	triggerDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payout_trigger_duration_seconds",
		Help:    "Duration of disbursement provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payout_trigger_in_flight",
		Help: "Payout jobs currently dispatched to the provider.",
	})
	aggregateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_aggregate_duration_seconds",
		Help:    "Duration of retailer ledger aggregation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	reg.MustRegister(triggers, triggerDuration, inFlight, aggregateDuration)
	return &PayoutMetrics{
		triggers:          triggers,
		triggerDuration:   triggerDuration,
		inFlight:          inFlight,
		aggregateDuration: aggregateDuration,
	}
}

// ObserveTrigger counts one trigger outcome and, when the provider was
// called, records how long the call took.
func (m *PayoutMetrics) ObserveTrigger(outcome string, duration time.Duration) {
	if m == nil || m.triggers == nil {
		return
	}
	m.triggers.WithLabelValues(normalizeLabel(outcome)).Inc()
	if duration > 0 {
		m.triggerDuration.Observe(duration.Seconds())
	}
}

func (m *PayoutMetrics) IncInFlight() {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *PayoutMetrics) DecInFlight() {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Dec()
}

// ObserveAggregate records the duration of one ledger aggregation.
func (m *PayoutMetrics) ObserveAggregate(status string, duration time.Duration) {
	if m == nil || m.aggregateDuration == nil {
		return
	}
	m.aggregateDuration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
