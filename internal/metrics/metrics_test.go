package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsUpdates(t *testing.T) {
	m := New()

	m.SetTemperature(72.5)
	m.SetFanActive(true)
	m.IncFanCycles()
	m.IncAlerts("CRITICAL")
	m.IncAlertsSuppressed("HIGH")
	m.IncChannelSend("slack", true)
	m.IncChannelSend("email", false)
	m.ObserveSampleDuration(150 * time.Millisecond)
	m.SetLastSampleTimestamp(time.Unix(100, 0))

	if got := testutil.ToFloat64(m.temperatureGauge); got != 72.5 {
		t.Fatalf("expected temperature 72.5, got %v", got)
	}
	if got := testutil.ToFloat64(m.fanStateGauge); got != 1 {
		t.Fatalf("expected fan active 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.fanCyclesTotal); got != 1 {
		t.Fatalf("expected fan cycles 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.alertsTotal.WithLabelValues("CRITICAL")); got != 1 {
		t.Fatalf("expected critical alerts 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.alertsSuppressedTotal.WithLabelValues("HIGH")); got != 1 {
		t.Fatalf("expected suppressed high alerts 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.channelSendsTotal.WithLabelValues("slack", "sent")); got != 1 {
		t.Fatalf("expected slack sends 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.channelSendsTotal.WithLabelValues("email", "failed")); got != 1 {
		t.Fatalf("expected email failures 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSampleGauge); got != 100 {
		t.Fatalf("expected last sample 100, got %v", got)
	}
	if count := testutil.CollectAndCount(m.sampleDurationSeconds); count == 0 {
		t.Fatalf("expected sample duration histogram to be collected")
	}

	m.SetFanActive(false)
	if got := testutil.ToFloat64(m.fanStateGauge); got != 0 {
		t.Fatalf("expected fan active 0, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	m.SetTemperature(50)
	m.SetFanActive(true)
	m.IncFanCycles()
	m.IncAlerts("HIGH")
	m.IncAlertsSuppressed("HIGH")
	m.IncChannelSend("slack", true)
	m.ObserveSampleDuration(time.Second)
	m.SetLastSampleTimestamp(time.Now())

	if m.Handler() == nil {
		t.Fatal("nil metrics should still return a handler")
	}
}
