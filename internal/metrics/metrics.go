package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for thermal-sentinel.
type Metrics struct {
	registry              *prometheus.Registry
	temperatureGauge      prometheus.Gauge
	fanStateGauge         prometheus.Gauge
	fanCyclesTotal        prometheus.Counter
	alertsTotal           *prometheus.CounterVec
	alertsSuppressedTotal *prometheus.CounterVec
	channelSendsTotal     *prometheus.CounterVec
	sampleDurationSeconds prometheus.Histogram
	lastSampleGauge       prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		temperatureGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_sentinel_temperature_celsius",
			Help: "Most recently sampled temperature in degrees Celsius.",
		}),
		fanStateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_sentinel_fan_active",
			Help: "Whether the cooling fan is currently commanded on (1) or off (0).",
		}),
		fanCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermal_sentinel_fan_cycles_total",
			Help: "Total OFF to ON fan transitions.",
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_sentinel_alerts_total",
			Help: "Total alert events dispatched by severity.",
		}, []string{"severity"}),
		alertsSuppressedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_sentinel_alerts_suppressed_total",
			Help: "Total alert events suppressed by the cooldown window, by severity.",
		}, []string{"severity"}),
		channelSendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermal_sentinel_channel_sends_total",
			Help: "Total notification channel attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		sampleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "thermal_sentinel_sample_duration_seconds",
			Help:    "Duration of sampling cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		lastSampleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermal_sentinel_last_sample_timestamp",
			Help: "Unix timestamp of the last completed sample.",
		}),
	}

	registry.MustRegister(
		m.temperatureGauge,
		m.fanStateGauge,
		m.fanCyclesTotal,
		m.alertsTotal,
		m.alertsSuppressedTotal,
		m.channelSendsTotal,
		m.sampleDurationSeconds,
		m.lastSampleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetTemperature records the latest sampled temperature.
func (m *Metrics) SetTemperature(temp float64) {
	if m == nil {
		return
	}
	m.temperatureGauge.Set(temp)
}

// SetFanActive records the fan state.
func (m *Metrics) SetFanActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.fanStateGauge.Set(1)
		return
	}
	m.fanStateGauge.Set(0)
}

// IncFanCycles increments the fan cycle counter.
func (m *Metrics) IncFanCycles() {
	if m == nil {
		return
	}
	m.fanCyclesTotal.Inc()
}

// IncAlerts increments the dispatched-alert counter for the severity.
func (m *Metrics) IncAlerts(severity string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(severity).Inc()
}

// IncAlertsSuppressed increments the suppressed-alert counter for the severity.
func (m *Metrics) IncAlertsSuppressed(severity string) {
	if m == nil {
		return
	}
	m.alertsSuppressedTotal.WithLabelValues(severity).Inc()
}

// IncChannelSend records one channel attempt outcome.
func (m *Metrics) IncChannelSend(channel string, sent bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if sent {
		outcome = "sent"
	}
	m.channelSendsTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveSampleDuration records the duration of a completed sample cycle.
func (m *Metrics) ObserveSampleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.sampleDurationSeconds.Observe(duration.Seconds())
}

// SetLastSampleTimestamp sets the last completed sample time.
func (m *Metrics) SetLastSampleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSampleGauge.Set(float64(t.Unix()))
}
