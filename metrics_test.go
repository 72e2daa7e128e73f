package authcore

import (
	"sync"
	"testing"
)

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not record")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled metrics snapshot must be empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	if nilMetrics.Value(MetricLoginSuccess) != 0 || nilMetrics.Enabled() {
		t.Fatal("nil metrics must be a safe no-op")
	}
}

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricAccessRejected)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}

	snapshot := m.Snapshot()
	if snapshot.Counters[MetricLoginSuccess] != 2 || snapshot.Counters[MetricAccessRejected] != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot.Counters)
	}
	if snapshot.Counters[MetricLoginFailure] != 0 {
		t.Fatalf("untouched counter must be zero: %+v", snapshot.Counters)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginSuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}
