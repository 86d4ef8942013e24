package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPayoutMetricsExportsTriggerSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPayoutMetrics(reg)

	metrics.IncInFlight()
	metrics.ObserveTrigger(OutcomeSucceeded, 250*time.Millisecond)
	metrics.ObserveTrigger(OutcomeUnknown, 30*time.Second)
	metrics.ObserveTrigger(OutcomeInFlight, 0)
	metrics.IncInFlight()
	metrics.DecInFlight()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for _, outcome := range []string{OutcomeSucceeded, OutcomeUnknown, OutcomeInFlight} {
		got, err := fetchCounterValue(mfs, "payout_trigger_total", "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", outcome, got)
		}
	}

	mf := findMetricFamily(mfs, "payout_trigger_duration_seconds")
	if mf == nil {
		t.Fatalf("duration histogram missing")
	}
	if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
		t.Fatalf("expected 2 duration samples, got %d", count)
	}

	gauge := findMetricFamily(mfs, "payout_trigger_in_flight")
	if gauge == nil {
		t.Fatalf("in-flight gauge missing")
	}
	if got := gauge.GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Fatalf("expected in_flight=1, got %f", got)
	}
}

func TestPayoutMetricsAggregateHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPayoutMetrics(reg)
	metrics.ObserveAggregate("pending", 120*time.Millisecond)
	metrics.ObserveAggregate("", 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "ledger_aggregate_duration_seconds", "status", "pending"); err != nil {
		t.Fatalf("fetch pending: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
	if _, err := fetchHistogramSum(mfs, "ledger_aggregate_duration_seconds", "status", "unknown"); err != nil {
		t.Fatalf("expected blank status to normalize: %v", err)
	}
}

func TestNilPayoutMetricsIsNoop(t *testing.T) {
	var metrics *PayoutMetrics
	metrics.ObserveTrigger(OutcomeSucceeded, time.Second)
	metrics.IncInFlight()
	metrics.DecInFlight()
	metrics.ObserveAggregate("all", time.Second)

	unregistered := NewPayoutMetrics(nil)
	unregistered.ObserveTrigger(OutcomeProviderError, time.Second)
	unregistered.ObserveAggregate("paid", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("counter %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
