// Package monitor owns all mutable monitoring state and serializes every
// mutation path behind one mutex. Both the periodic sampling loop and
// on-demand probes run the same pipeline; outbound I/O (probing, channel
// delivery, telemetry) happens outside the critical section, followed by a
// short locked update of history, statistics and cooldown state.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/thermal-sentinel/internal/alert"
	"github.com/nholik/thermal-sentinel/internal/config"
	"github.com/nholik/thermal-sentinel/internal/eventlog"
	"github.com/nholik/thermal-sentinel/internal/fan"
	"github.com/nholik/thermal-sentinel/internal/healthcheck"
	"github.com/nholik/thermal-sentinel/internal/history"
	"github.com/nholik/thermal-sentinel/internal/metrics"
	"github.com/nholik/thermal-sentinel/internal/telemetry"
)

// Sampler produces one temperature reading per call. It never fails; the
// source package falls back to synthetic values internally.
type Sampler interface {
	Sample(ctx context.Context) float64
}

// Status is a point-in-time view of the aggregate state for read-only
// consumers (API, dashboard, voice responses).
type Status struct {
	Temperature     float64              `json:"temperature"`
	StatusLabel     string               `json:"temperature_status"`
	FanActive       bool                 `json:"fan_active"`
	FanAvailable    bool                 `json:"fan_available"`
	FanCycles       int64                `json:"fan_cycles"`
	Thresholds      config.Thresholds    `json:"thresholds"`
	MaxTemp         float64              `json:"max_temp"`
	MinTemp         float64              `json:"min_temp"`
	AlertsTriggered int64                `json:"alerts_triggered"`
	ChannelSends    map[string]int64     `json:"channel_send_counts"`
	HistoryCount    int                  `json:"history_count"`
	HistoryCap      int                  `json:"history_capacity"`
	UptimeStart     time.Time            `json:"uptime_start"`
	SampleInterval  time.Duration        `json:"sample_interval"`
	RetentionHours  int                  `json:"retention_hours"`
	VoiceEnabled    bool                 `json:"voice_enabled"`
	LastSample      time.Time            `json:"last_sample"`
}

// Label maps a temperature to its reporting status. Warm sits between the
// normal and high thresholds: the fan runs but no alert fires.
func Label(temp float64, t config.Thresholds) string {
	switch {
	case temp > t.Critical:
		return "Critical"
	case temp > t.High:
		return "High"
	case temp > t.Normal:
		return "Warm"
	default:
		return "Normal"
	}
}

type stats struct {
	maxTemp         float64
	minTemp         float64
	hasExtrema      bool
	alertsTriggered int64
	channelSends    map[string]int64
	uptimeStart     time.Time
}

// Monitor orchestrates sampling, fan control, alert dispatch and telemetry.
type Monitor struct {
	logger        zerolog.Logger
	cfg           *config.Store
	sampler       Sampler
	controller    *fan.Controller
	dispatcher    *alert.Dispatcher
	sink          telemetry.Sink
	metrics       *metrics.Metrics
	tracker       *healthcheck.Tracker
	events        *eventlog.Buffer
	now           func() time.Time
	tickerFactory func(time.Duration) Ticker

	mu           sync.Mutex
	history      *history.Store
	stats        stats
	voiceEnabled bool
}

// Option customizes monitor behavior.
type Option func(*Monitor)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(m *Monitor) {
		m.tickerFactory = factory
	}
}

// WithClock overrides the time source (primarily for testing).
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = collector
	}
}

// WithTracker attaches a healthcheck tracker.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(m *Monitor) {
		m.tracker = tracker
	}
}

// WithTelemetry attaches a telemetry sink.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(m *Monitor) {
		m.sink = sink
	}
}

// New constructs a Monitor. The history capacity is derived from the
// initial configuration snapshot.
func New(logger zerolog.Logger, cfg *config.Store, sampler Sampler, controller *fan.Controller, dispatcher *alert.Dispatcher, opts ...Option) *Monitor {
	snapshot := cfg.Current()
	m := &Monitor{
		logger:     logger,
		cfg:        cfg,
		sampler:    sampler,
		controller: controller,
		dispatcher: dispatcher,
		sink:       telemetry.NoopSink{},
		events:     eventlog.NewBuffer(eventlog.DefaultCapacity),
		now:        time.Now,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		history:      history.NewStore(snapshot.HistoryCapacity()),
		voiceEnabled: true,
	}

	// Options must apply before the first clock read so an injected clock
	// also governs the initial uptime start.
	for _, opt := range opts {
		opt(m)
	}
	m.stats = freshStats(m.now())

	return m
}

func freshStats(now time.Time) stats {
	return stats{
		channelSends: make(map[string]int64),
		uptimeStart:  now,
	}
}

// Run starts the sampling loop and blocks until the context is canceled.
// On shutdown the fan is commanded off, best-effort.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.Current().SampleInterval
	if interval <= 0 {
		return errors.New("sample interval must be greater than zero")
	}

	// Sample immediately on startup
	m.safeTick(ctx)

	ticker := m.tickerFactory(interval)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("monitor stopping, switching fan off")
			m.Shutdown()
			return nil
		case <-ticker.C():
			m.safeTick(ctx)

			// Pick up interval changes from configuration updates.
			if next := m.cfg.Current().SampleInterval; next != interval {
				ticker.Stop()
				interval = next
				ticker = m.tickerFactory(interval)
				m.logger.Info().Dur("interval", interval).Msg("sample interval updated")
			}
		}
	}
}

// safeTick runs one tick and contains any panic so an unexpected failure
// never terminates the loop; the next scheduled tick proceeds normally.
func (m *Monitor) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("sample tick failed unexpectedly")
		}
	}()
	m.Tick(ctx)
}

// Tick executes one full sample cycle: sample, history append, fan control,
// severity evaluation, telemetry publish and alert dispatch.
func (m *Monitor) Tick(ctx context.Context) {
	cfg := m.cfg.Current()
	start := m.now()

	// Outbound probe happens before taking the lock; the sampler bounds
	// its own timeouts and never fails.
	temp := m.sampler.Sample(ctx)

	m.mu.Lock()
	sampledAt := m.now()
	transition := m.controller.Apply(temp, cfg.Thresholds.Normal)
	reading := history.Reading{
		Timestamp:   sampledAt,
		Temperature: temp,
		FanActive:   m.controller.Active(),
	}
	m.history.Append(reading)

	if !m.stats.hasExtrema {
		m.stats.maxTemp = temp
		m.stats.minTemp = temp
		m.stats.hasExtrema = true
	} else {
		if temp > m.stats.maxTemp {
			m.stats.maxTemp = temp
		}
		if temp < m.stats.minTemp {
			m.stats.minTemp = temp
		}
	}

	severity, firing := alert.Classify(temp, cfg.Thresholds)
	shouldSend := false
	if firing {
		shouldSend = m.dispatcher.ShouldDispatch(sampledAt, severity, cooldownFor(cfg, severity))
	}
	fanActive := m.controller.Active()
	m.mu.Unlock()

	// Raw readings go to the telemetry sink on every sample, regardless of
	// severity; this side channel has no cooldown.
	if payload, err := json.Marshal(reading); err == nil {
		m.sink.Publish(cfg.MQTTTopic, payload)
	}

	switch transition {
	case fan.TransitionOn:
		m.metrics.IncFanCycles()
		m.events.Append(eventlog.Entry{Time: sampledAt, Level: eventlog.LevelInfo, Message: "fan turned on"})
	case fan.TransitionOff:
		m.events.Append(eventlog.Entry{Time: sampledAt, Level: eventlog.LevelInfo, Message: "fan turned off"})
	}

	if firing && !shouldSend {
		m.metrics.IncAlertsSuppressed(string(severity))
		m.logger.Debug().
			Str("severity", string(severity)).
			Float64("temperature", temp).
			Msg("alert suppressed by cooldown")
	}

	if shouldSend {
		m.dispatch(ctx, severity, temp, cfg)
	}

	duration := m.now().Sub(start)
	m.metrics.SetTemperature(temp)
	m.metrics.SetFanActive(fanActive)
	m.metrics.ObserveSampleDuration(duration)
	m.metrics.SetLastSampleTimestamp(sampledAt)
	m.tracker.RecordSample(duration)
}

// dispatch fans an alert out to every channel outside the lock, then
// commits cooldown and counters inside it.
func (m *Monitor) dispatch(ctx context.Context, severity alert.Severity, temp float64, cfg config.Config) {
	subject := alert.Subject(severity)
	body := alert.Body(severity, temp, cfg.Thresholds)

	results := m.dispatcher.Fanout(ctx, severity, subject, body)

	m.mu.Lock()
	outcome := m.dispatcher.Commit(m.now(), severity, results)
	m.stats.alertsTriggered++
	for name, sent := range results {
		if sent {
			m.stats.channelSends[name]++
		}
	}
	m.mu.Unlock()

	m.metrics.IncAlerts(string(severity))
	for name, sent := range results {
		m.metrics.IncChannelSend(name, sent)
	}

	m.events.Append(eventlog.Entry{
		Time:     m.now(),
		Level:    eventlog.LevelAlert,
		Message:  subject + ": " + body,
		Outcomes: results,
	})

	event := m.logger.Warn().
		Str("severity", string(severity)).
		Float64("temperature", temp).
		Bool("delivered", outcome.Sent())
	for name, sent := range results {
		event = event.Bool("channel_"+name, sent)
	}
	event.Msg("temperature alert")
}

// Probe runs one on-demand sample cycle and returns the resulting status.
// Probes share the pipeline and the lock with the periodic loop, so they
// contend but never corrupt state.
func (m *Monitor) Probe(ctx context.Context) Status {
	m.Tick(ctx)
	return m.Status()
}

// Status returns a point-in-time aggregate snapshot.
func (m *Monitor) Status() Status {
	cfg := m.cfg.Current()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		FanActive:       m.controller.Active(),
		FanAvailable:    m.controller.Available(),
		FanCycles:       m.controller.Cycles(),
		Thresholds:      cfg.Thresholds,
		MaxTemp:         m.stats.maxTemp,
		MinTemp:         m.stats.minTemp,
		AlertsTriggered: m.stats.alertsTriggered,
		ChannelSends:    make(map[string]int64, len(m.stats.channelSends)),
		HistoryCount:    m.history.Len(),
		HistoryCap:      m.history.Cap(),
		UptimeStart:     m.stats.uptimeStart,
		SampleInterval:  cfg.SampleInterval,
		RetentionHours:  cfg.RetentionHours,
		VoiceEnabled:    m.voiceEnabled,
	}
	for name, count := range m.stats.channelSends {
		st.ChannelSends[name] = count
	}

	if last, ok := m.history.Last(); ok {
		st.Temperature = last.Temperature
		st.LastSample = last.Timestamp
	}
	st.StatusLabel = Label(st.Temperature, cfg.Thresholds)

	return st
}

// HistorySnapshot returns a copy of the last n readings (all when n <= 0).
func (m *Monitor) HistorySnapshot(n int) []history.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Snapshot(n)
}

// Events returns a copy of the last n observability entries.
func (m *Monitor) Events(n int) []eventlog.Entry {
	return m.events.Snapshot(n)
}

// RecordVoice appends a voice interaction to the observability log.
func (m *Monitor) RecordVoice(command, response string) {
	m.events.Append(eventlog.Entry{
		Time:    m.now(),
		Level:   eventlog.LevelVoice,
		Message: "command: " + command + " | response: " + response,
	})
}

// ResetStats re-zeroes aggregate statistics and the fan cycle counter. The
// fan state and the reading history are untouched.
func (m *Monitor) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = freshStats(m.now())
	m.controller.ResetCycles()
}

// ApplyConfig validates and activates a configuration update, resizing the
// history to the new retention window. Invalid updates are rejected and the
// prior configuration stays authoritative.
func (m *Monitor) ApplyConfig(next config.Config) error {
	if err := m.cfg.Apply(next); err != nil {
		return err
	}

	m.mu.Lock()
	m.history.Resize(next.HistoryCapacity())
	m.mu.Unlock()

	m.logger.Info().
		Float64("normal", next.Thresholds.Normal).
		Float64("high", next.Thresholds.High).
		Float64("critical", next.Thresholds.Critical).
		Dur("interval", next.SampleInterval).
		Msg("configuration updated")
	return nil
}

// Config returns the active configuration snapshot.
func (m *Monitor) Config() config.Config {
	return m.cfg.Current()
}

// VoiceEnabled reports whether voice command capture is enabled.
func (m *Monitor) VoiceEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voiceEnabled
}

// SetVoiceEnabled flips the voice control flag.
func (m *Monitor) SetVoiceEnabled(enabled bool) {
	m.mu.Lock()
	m.voiceEnabled = enabled
	m.mu.Unlock()

	m.events.Append(eventlog.Entry{
		Time:    m.now(),
		Level:   eventlog.LevelVoice,
		Message: "voice control " + enabledWord(enabled),
	})
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// Shutdown commands the fan off, best-effort.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controller.Shutdown()
}

func cooldownFor(cfg config.Config, severity alert.Severity) time.Duration {
	if severity == alert.SeverityCritical {
		return cfg.CooldownCritical
	}
	return cfg.CooldownHigh
}
