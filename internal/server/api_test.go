package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/thermal-sentinel/internal/alert"
	"github.com/nholik/thermal-sentinel/internal/config"
	"github.com/nholik/thermal-sentinel/internal/fan"
	"github.com/nholik/thermal-sentinel/internal/monitor"
	"github.com/nholik/thermal-sentinel/internal/sysinfo"
	"github.com/nholik/thermal-sentinel/internal/voice"
)

type fixedSampler struct {
	temp float64
}

func (s fixedSampler) Sample(context.Context) float64 { return s.temp }

func testAPIConfig() config.Config {
	return config.Config{
		SampleInterval: 30 * time.Second,
		RetentionHours: 24,
		Thresholds: config.Thresholds{
			Normal:   60,
			High:     70,
			Critical: 80,
		},
		CooldownHigh:     15 * time.Minute,
		CooldownCritical: 5 * time.Minute,
		ProbeTimeout:     time.Second,
		MQTTTopic:        "thermal/readings",
	}
}

func newTestAPI(t *testing.T, temp float64) (*API, *monitor.Monitor) {
	t.Helper()

	store, err := config.NewStore(testAPIConfig())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	logger := zerolog.Nop()
	controller := fan.NewController(logger, fan.NewSimDriver())
	dispatcher := alert.NewDispatcher(logger, []alert.Channel{
		alert.NewNoop(logger, "noop", ""),
	})
	m := monitor.New(logger, store, fixedSampler{temp: temp}, controller, dispatcher)

	api := NewAPI(logger, m, voice.NewRouter())
	api.collect = func() sysinfo.Info {
		return sysinfo.Info{MemoryUsedPercent: 42.5, CPULoad1: 0.8}
	}
	return api, m
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	api, m := newTestAPI(t, 65)
	m.Tick(context.Background())
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Temperature  float64 `json:"temperature"`
		StatusLabel  string  `json:"temperature_status"`
		FanActive    bool    `json:"fan_active"`
		MemoryUsage  float64 `json:"memory_usage"`
		HistoryCount int     `json:"history_count"`
	}
	decode(t, rec, &resp)

	if resp.Temperature != 65 {
		t.Errorf("temperature = %v, want 65", resp.Temperature)
	}
	if resp.StatusLabel != "Warm" {
		t.Errorf("temperature_status = %q, want Warm", resp.StatusLabel)
	}
	if !resp.FanActive {
		t.Error("fan_active = false, want true above normal threshold")
	}
	if resp.MemoryUsage != 42.5 {
		t.Errorf("memory_usage = %v, want 42.5", resp.MemoryUsage)
	}
	if resp.HistoryCount != 1 {
		t.Errorf("history_count = %d, want 1", resp.HistoryCount)
	}
}

func TestProbeEndpointSamplesOnDemand(t *testing.T) {
	api, m := newTestAPI(t, 55)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/probe", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := m.Status().HistoryCount; got != 1 {
		t.Errorf("history count after probe = %d, want 1", got)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	api, m := newTestAPI(t, 50)
	for i := 0; i < 5; i++ {
		m.Tick(context.Background())
	}
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/history?n=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Count    int `json:"count"`
		Readings []struct {
			Temperature float64 `json:"temperature"`
		} `json:"readings"`
	}
	decode(t, rec, &resp)
	if resp.Count != 2 || len(resp.Readings) != 2 {
		t.Errorf("count = %d readings = %d, want 2 each", resp.Count, len(resp.Readings))
	}

	if rec := doJSON(t, handler, http.MethodGet, "/api/history?n=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative n: status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpointEmpty(t *testing.T) {
	api, _ := newTestAPI(t, 50)

	rec := doJSON(t, api.Handler(), http.MethodGet, "/api/history", "")
	var resp struct {
		Count    int               `json:"count"`
		Readings []json.RawMessage `json:"readings"`
	}
	decode(t, rec, &resp)
	if resp.Count != 0 || resp.Readings == nil {
		t.Errorf("empty history should serialize as [], got count=%d readings=%v", resp.Count, resp.Readings)
	}
}

func TestResetStatsEndpoint(t *testing.T) {
	api, m := newTestAPI(t, 85)
	m.Tick(context.Background())
	if m.Status().AlertsTriggered != 1 {
		t.Fatal("precondition: one alert expected")
	}

	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/reset-stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := m.Status().AlertsTriggered; got != 0 {
		t.Errorf("alerts after reset = %d, want 0", got)
	}
}

func TestConfigEndpointAppliesPartialUpdate(t *testing.T) {
	api, m := newTestAPI(t, 50)

	body := `{"thresholds":{"high":75},"sample_interval":"1m"}`
	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/config", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	cfg := m.Config()
	if cfg.Thresholds.High != 75 {
		t.Errorf("high threshold = %v, want 75", cfg.Thresholds.High)
	}
	if cfg.Thresholds.Normal != 60 || cfg.Thresholds.Critical != 80 {
		t.Errorf("unmentioned thresholds changed: %+v", cfg.Thresholds)
	}
	if cfg.SampleInterval != time.Minute {
		t.Errorf("sample interval = %v, want 1m", cfg.SampleInterval)
	}
}

func TestConfigEndpointRejectsInvalidUpdate(t *testing.T) {
	api, m := newTestAPI(t, 50)
	before := m.Config()

	cases := []string{
		`{"thresholds":{"normal":90}}`,
		`{"sample_interval":"soon"}`,
		`{"retention_hours":0}`,
		`not json`,
	}
	for _, body := range cases {
		rec := doJSON(t, api.Handler(), http.MethodPost, "/api/config", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}

	if got := m.Config(); got.Thresholds != before.Thresholds {
		t.Errorf("thresholds changed after rejected updates: %+v", got.Thresholds)
	}
}

func TestCommandEndpointAnswersTemperature(t *testing.T) {
	api, m := newTestAPI(t, 85)
	m.Tick(context.Background())

	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/command", `{"text":"what is the temperature?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Response     string `json:"response"`
		VoiceEnabled bool   `json:"voice_enabled"`
	}
	decode(t, rec, &resp)
	if !strings.Contains(resp.Response, "Critical") || !strings.Contains(resp.Response, "85") {
		t.Errorf("response = %q, want the critical label and the reading", resp.Response)
	}
	if !resp.VoiceEnabled {
		t.Error("voice should remain enabled after an ordinary command")
	}

	events := m.Events(0)
	found := false
	for _, entry := range events {
		if strings.Contains(entry.Message, "what is the temperature?") {
			found = true
		}
	}
	if !found {
		t.Error("command was not recorded in the event log")
	}
}

func TestCommandEndpointDisableAndReenable(t *testing.T) {
	api, m := newTestAPI(t, 50)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/command", `{"text":"please disable voice control"}`)
	var resp struct {
		VoiceEnabled bool `json:"voice_enabled"`
	}
	decode(t, rec, &resp)
	if resp.VoiceEnabled {
		t.Fatal("voice should be disabled by the disable command")
	}

	if rec := doJSON(t, handler, http.MethodPost, "/api/command", `{"text":"temperature"}`); rec.Code != http.StatusConflict {
		t.Errorf("command while disabled: status = %d, want 409", rec.Code)
	}

	if rec := doJSON(t, handler, http.MethodPost, "/api/voice", `{"enabled":true}`); rec.Code != http.StatusOK {
		t.Fatalf("re-enable: status = %d, want 200", rec.Code)
	}
	if !m.VoiceEnabled() {
		t.Error("voice should be enabled after the toggle")
	}

	if rec := doJSON(t, handler, http.MethodPost, "/api/command", `{"text":"temperature"}`); rec.Code != http.StatusOK {
		t.Errorf("command after re-enable: status = %d, want 200", rec.Code)
	}
}

func TestCommandEndpointRequiresText(t *testing.T) {
	api, _ := newTestAPI(t, 50)

	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/command", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	api, m := newTestAPI(t, 85)
	m.Tick(context.Background())

	rec := doJSON(t, api.Handler(), http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Count  int `json:"count"`
		Events []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"events"`
	}
	decode(t, rec, &resp)
	if resp.Count == 0 {
		t.Fatal("expected fan and alert events after a critical sample")
	}
	hasAlert := false
	for _, entry := range resp.Events {
		if entry.Level == "ALERT" {
			hasAlert = true
		}
	}
	if !hasAlert {
		t.Error("no ALERT entry in events response")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t, 50)

	rec := doJSON(t, api.Handler(), http.MethodGet, "/api/reset-stats", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on reset-stats: status = %d, want 405", rec.Code)
	}
}
