package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExportCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncSubmission("card", "failure")
	m.IncSubmission("card", "failure")
	m.IncPayoutAction("approve", "success")
	m.ObserveBackend("payments.process", 200, 250*time.Millisecond)
	m.ObserveBackend("payments.process", 0, 50*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "escrowdesk_payment_submissions_total", "method", "card"); err != nil {
		t.Fatalf("fetch submissions: %v", err)
	} else if got != 2 {
		t.Fatalf("expected submissions=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "escrowdesk_payout_actions_total", "action", "approve"); err != nil {
		t.Fatalf("fetch payout actions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected payout actions=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "escrowdesk_backend_request_duration_seconds", "status", "2xx"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if _, err := fetchHistogramSum(mfs, "escrowdesk_backend_request_duration_seconds", "status", "transport_error"); err != nil {
		t.Fatalf("transport errors should be observed: %v", err)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	m.IncSubmission("card", "success")
	m.IncPayoutAction("approve", "success")
	m.ObserveBackend("x", 200, time.Second)
	New(nil).IncSubmission("", "")
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

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSuccess("journal-retention")
	m.IncFailure("journal-retention")
	m.IncFailure("journal-retention")
	m.ObserveDuration("journal-retention", time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "escrowdesk_cron_job_runs_total")
	if mf == nil {
		t.Fatalf("cron runs metric missing")
	}
	var failures float64
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "outcome", "failure") {
			failures = metric.GetCounter().GetValue()
		}
	}
	if failures != 2 {
		t.Fatalf("expected 2 failures got %f", failures)
	}
	if got, err := fetchHistogramSum(mfs, "escrowdesk_cron_job_duration_seconds", "job", "journal-retention"); err != nil || got != 1 {
		t.Fatalf("expected duration sum 1, got %f (%v)", got, err)
	}

	var nilMetrics *CronJobMetrics
	nilMetrics.IncSuccess("x")
}
