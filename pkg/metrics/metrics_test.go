package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestQueryCacheMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueryCacheMetrics(reg)
	m.Hit("catalog")
	m.Hit("catalog")
	m.Miss("catalog")
	m.Failure("")
	m.Superseded("catalog")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		name  string
		label string
		want  float64
	}{
		{"amaia_querycache_hits_total", "catalog", 2},
		{"amaia_querycache_misses_total", "catalog", 1},
		{"amaia_querycache_failures_total", "unknown", 1},
		{"amaia_querycache_superseded_total", "catalog", 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, "cache", tc.label)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.ObservePayment("success", 250*time.Millisecond)
	m.IncSubmission("success")
	m.IncSubmission("empty_cart")
	m.IncPersistenceFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "amaia_checkout_submissions_total", "outcome", "empty_cart"); err != nil {
		t.Fatalf("fetch submissions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected empty_cart=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "amaia_checkout_payment_duration_seconds", "outcome", "success"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	mf := findMetricFamily(mfs, "amaia_cart_persistence_failures_total")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one persistence failure, got %v", mf)
	}
}

func TestMaintenanceMetricsSplitOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMaintenanceMetrics(reg)
	job := "cart-snapshot-cleanup"
	m.Record(job, 250*time.Millisecond, nil)
	m.Record(job, 100*time.Millisecond, errors.New("db down"))
	m.Record(job, 50*time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	runs := findMetricFamily(mfs, "amaia_maintenance_runs_total")
	if runs == nil {
		t.Fatal("runs metric missing")
	}
	byOutcome := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		if !matchesLabel(metric.GetLabel(), "job", job) {
			t.Fatalf("unexpected labels %v", metric.GetLabel())
		}
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				byOutcome[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	if byOutcome["success"] != 2 || byOutcome["failure"] != 1 {
		t.Fatalf("unexpected outcomes %v", byOutcome)
	}
	if got, err := fetchHistogramSum(mfs, "amaia_maintenance_duration_seconds", "job", job); err != nil || got < 0.39 {
		t.Fatalf("expected duration sum of 0.4s, got %f err=%v", got, err)
	}
	if last := findMetricFamily(mfs, "amaia_maintenance_last_success_timestamp_seconds"); last == nil || last.GetMetric()[0].GetGauge().GetValue() <= 0 {
		t.Fatalf("expected last success timestamp, got %v", last)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var q *QueryCacheMetrics
	q.Hit("x")
	q.Miss("x")
	q.Failure("x")
	q.Superseded("x")

	var c *CheckoutMetrics
	c.ObservePayment("x", time.Second)
	c.IncSubmission("x")
	c.IncPersistenceFailure()

	var j *MaintenanceMetrics
	j.Record("x", time.Second, nil)

	NewQueryCacheMetrics(nil).Hit("x")
	NewCheckoutMetrics(nil).IncSubmission("x")
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
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
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
