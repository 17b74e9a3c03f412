package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nholik/thermal-sentinel/internal/config"
	"github.com/nholik/thermal-sentinel/internal/eventlog"
	"github.com/nholik/thermal-sentinel/internal/history"
	"github.com/nholik/thermal-sentinel/internal/monitor"
	"github.com/nholik/thermal-sentinel/internal/sysinfo"
	"github.com/nholik/thermal-sentinel/internal/voice"
)

// API serves the REST surface over the monitor.
type API struct {
	logger  zerolog.Logger
	monitor *monitor.Monitor
	router  *voice.Router
	collect func() sysinfo.Info
}

// NewAPI constructs the API surface.
func NewAPI(logger zerolog.Logger, m *monitor.Monitor, router *voice.Router) *API {
	return &API{
		logger:  logger,
		monitor: m,
		router:  router,
		collect: sysinfo.Collect,
	}
}

// Handler returns the routed API handler.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/history", a.handleHistory)
	mux.HandleFunc("GET /api/events", a.handleEvents)
	mux.HandleFunc("POST /api/probe", a.handleProbe)
	mux.HandleFunc("POST /api/reset-stats", a.handleResetStats)
	mux.HandleFunc("POST /api/config", a.handleConfig)
	mux.HandleFunc("POST /api/command", a.handleCommand)
	mux.HandleFunc("POST /api/voice", a.handleVoiceToggle)
	return mux
}

type statusResponse struct {
	monitor.Status
	MemoryUsage   float64 `json:"memory_usage"`
	CPULoad       float64 `json:"cpu_load"`
	SystemUptime  float64 `json:"system_uptime_seconds"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (a *API) statusResponse() statusResponse {
	st := a.monitor.Status()
	info := a.collect()
	return statusResponse{
		Status:        st,
		MemoryUsage:   info.MemoryUsedPercent,
		CPULoad:       info.CPULoad1,
		SystemUptime:  info.SystemUptime.Seconds(),
		UptimeSeconds: time.Since(st.UptimeStart).Seconds(),
	}
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.statusResponse())
}

// handleProbe runs one on-demand sample cycle and returns the fresh status.
func (a *API) handleProbe(w http.ResponseWriter, r *http.Request) {
	a.monitor.Probe(r.Context())
	writeJSON(w, http.StatusOK, a.statusResponse())
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	n, err := countParam(r, "n")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	readings := a.monitor.HistorySnapshot(n)
	if readings == nil {
		readings = []history.Reading{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	n, err := countParam(r, "n")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries := a.monitor.Events(n)
	if entries == nil {
		entries = []eventlog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": entries,
		"count":  len(entries),
	})
}

func (a *API) handleResetStats(w http.ResponseWriter, r *http.Request) {
	a.monitor.ResetStats()
	a.logger.Info().Msg("statistics reset via api")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type configUpdate struct {
	Thresholds *struct {
		Normal   *float64 `json:"normal"`
		High     *float64 `json:"high"`
		Critical *float64 `json:"critical"`
	} `json:"thresholds"`
	SampleInterval   *string `json:"sample_interval"`
	RetentionHours   *int    `json:"retention_hours"`
	CooldownHigh     *string `json:"cooldown_high"`
	CooldownCritical *string `json:"cooldown_critical"`
}

// handleConfig applies a partial configuration update. Omitted fields keep
// their current values; an invalid combination rejects the whole update.
func (a *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	var update configUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid configuration payload"))
		return
	}

	next := a.monitor.Config()
	if update.Thresholds != nil {
		if update.Thresholds.Normal != nil {
			next.Thresholds.Normal = *update.Thresholds.Normal
		}
		if update.Thresholds.High != nil {
			next.Thresholds.High = *update.Thresholds.High
		}
		if update.Thresholds.Critical != nil {
			next.Thresholds.Critical = *update.Thresholds.Critical
		}
	}
	if update.RetentionHours != nil {
		next.RetentionHours = *update.RetentionHours
	}
	if err := applyDuration(update.SampleInterval, &next.SampleInterval); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := applyDuration(update.CooldownHigh, &next.CooldownHigh); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := applyDuration(update.CooldownCritical, &next.CooldownCritical); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.monitor.ApplyConfig(next); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, configView(next))
}

func configView(cfg config.Config) map[string]any {
	return map[string]any{
		"thresholds": map[string]float64{
			"normal":   cfg.Thresholds.Normal,
			"high":     cfg.Thresholds.High,
			"critical": cfg.Thresholds.Critical,
		},
		"sample_interval":   cfg.SampleInterval.String(),
		"retention_hours":   cfg.RetentionHours,
		"cooldown_high":     cfg.CooldownHigh.String(),
		"cooldown_critical": cfg.CooldownCritical.String(),
		"history_capacity":  cfg.HistoryCapacity(),
	}
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Response     string `json:"response"`
	VoiceEnabled bool   `json:"voice_enabled"`
}

// handleCommand routes one recognized voice command. Commands are refused
// while voice control is disabled; the disable command itself flips the flag.
func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, errors.New("command text is required"))
		return
	}

	if !a.monitor.VoiceEnabled() {
		writeJSON(w, http.StatusConflict, commandResponse{
			Response:     "Voice control is disabled. Re-enable it from the dashboard.",
			VoiceEnabled: false,
		})
		return
	}

	st := a.monitor.Status()
	info := a.collect()
	response := a.router.Route(req.Text, voice.Status{
		Temperature:     st.Temperature,
		StatusLabel:     st.StatusLabel,
		FanActive:       st.FanActive,
		FanAvailable:    st.FanAvailable,
		FanCycles:       st.FanCycles,
		MaxTemp:         st.MaxTemp,
		MinTemp:         st.MinTemp,
		AlertsTriggered: st.AlertsTriggered,
		HistoryCount:    st.HistoryCount,
		UptimeStart:     st.UptimeStart,
		MemoryUsage:     info.MemoryUsedPercent,
		CPULoad:         info.CPULoad1,
	})

	if response.DisableControl {
		a.monitor.SetVoiceEnabled(false)
	}
	a.monitor.RecordVoice(req.Text, response.Text)

	writeJSON(w, http.StatusOK, commandResponse{
		Response:     response.Text,
		VoiceEnabled: a.monitor.VoiceEnabled(),
	})
}

type voiceToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (a *API) handleVoiceToggle(w http.ResponseWriter, r *http.Request) {
	var req voiceToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid voice toggle payload"))
		return
	}
	a.monitor.SetVoiceEnabled(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"voice_enabled": req.Enabled})
}

func applyDuration(value *string, target *time.Duration) error {
	if value == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*value)
	if err != nil {
		return errors.New("invalid duration " + strconv.Quote(*value))
	}
	*target = parsed
	return nil
}

func countParam(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("query parameter " + name + " must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
