package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envSampleInterval   = "TS_SAMPLE_INTERVAL"
	envRetentionHours   = "TS_RETENTION_HOURS"
	envTempNormal       = "TS_TEMP_NORMAL"
	envTempHigh         = "TS_TEMP_HIGH"
	envTempCritical     = "TS_TEMP_CRITICAL"
	envCooldownHigh     = "TS_COOLDOWN_HIGH"
	envCooldownCritical = "TS_COOLDOWN_CRITICAL"
	envFanGPIOPin       = "TS_FAN_GPIO_PIN"
	envProbeURL         = "TS_PROBE_URL"
	envProbeTimeout     = "TS_PROBE_TIMEOUT"
	envSyntheticBase    = "TS_SYNTHETIC_BASE"
	envMQTTBrokerURL    = "TS_MQTT_BROKER_URL"
	envMQTTTopic        = "TS_MQTT_TOPIC"
	envSlackWebhookURL  = "TS_SLACK_WEBHOOK_URL"
	envChatWebhookURL   = "TS_CHAT_WEBHOOK_URL"
	envSMTPAddr         = "TS_SMTP_ADDR"
	envSMTPFrom         = "TS_SMTP_FROM"
	envSMTPTo           = "TS_SMTP_TO"
	envChannelsFile     = "TS_CHANNELS_FILE"
	envHealthPort       = "TS_HEALTH_PORT"
	envMetricsPort      = "TS_METRICS_PORT"
	envAPIPort          = "TS_API_PORT"
	envLogLevel         = "TS_LOG_LEVEL"
)

const (
	defaultSampleInterval   = 30 * time.Second
	defaultRetentionHours   = 24
	defaultTempNormal       = 60.0
	defaultTempHigh         = 70.0
	defaultTempCritical     = 80.0
	defaultCooldownHigh     = 15 * time.Minute
	defaultCooldownCritical = 5 * time.Minute
	defaultFanGPIOPin       = 14
	defaultProbeTimeout     = 5 * time.Second
	defaultSyntheticBase    = 45.0
	defaultMQTTTopic        = "thermal/readings"
	defaultAPIPort          = 5000
)

// Thresholds is the ordered triple driving fan control and alert severity.
type Thresholds struct {
	Normal   float64
	High     float64
	Critical float64
}

// Config describes runtime configuration loaded from the environment.
type Config struct {
	SampleInterval   time.Duration
	RetentionHours   int
	Thresholds       Thresholds
	CooldownHigh     time.Duration
	CooldownCritical time.Duration
	FanGPIOPin       int
	ProbeURL         string
	ProbeTimeout     time.Duration
	SyntheticBase    float64
	MQTTBrokerURL    string
	MQTTTopic        string
	SlackWebhookURL  string
	ChatWebhookURL   string
	SMTPAddr         string
	SMTPFrom         string
	SMTPTo           []string
	ChannelsFile     string
	HealthPort       int
	MetricsPort      int
	APIPort          int
	LogLevel         string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		SampleInterval: defaultSampleInterval,
		RetentionHours: defaultRetentionHours,
		Thresholds: Thresholds{
			Normal:   defaultTempNormal,
			High:     defaultTempHigh,
			Critical: defaultTempCritical,
		},
		CooldownHigh:     defaultCooldownHigh,
		CooldownCritical: defaultCooldownCritical,
		FanGPIOPin:       defaultFanGPIOPin,
		ProbeTimeout:     defaultProbeTimeout,
		SyntheticBase:    defaultSyntheticBase,
		MQTTTopic:        defaultMQTTTopic,
		APIPort:          defaultAPIPort,
	}

	var err error
	if cfg.SampleInterval, err = durationEnv(envSampleInterval, cfg.SampleInterval); err != nil {
		return Config{}, err
	}
	if cfg.RetentionHours, err = intEnv(envRetentionHours, cfg.RetentionHours); err != nil {
		return Config{}, err
	}
	if cfg.Thresholds.Normal, err = floatEnv(envTempNormal, cfg.Thresholds.Normal); err != nil {
		return Config{}, err
	}
	if cfg.Thresholds.High, err = floatEnv(envTempHigh, cfg.Thresholds.High); err != nil {
		return Config{}, err
	}
	if cfg.Thresholds.Critical, err = floatEnv(envTempCritical, cfg.Thresholds.Critical); err != nil {
		return Config{}, err
	}
	if cfg.CooldownHigh, err = durationEnv(envCooldownHigh, cfg.CooldownHigh); err != nil {
		return Config{}, err
	}
	if cfg.CooldownCritical, err = durationEnv(envCooldownCritical, cfg.CooldownCritical); err != nil {
		return Config{}, err
	}
	if cfg.FanGPIOPin, err = intEnv(envFanGPIOPin, cfg.FanGPIOPin); err != nil {
		return Config{}, err
	}
	if cfg.ProbeTimeout, err = durationEnv(envProbeTimeout, cfg.ProbeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SyntheticBase, err = floatEnv(envSyntheticBase, cfg.SyntheticBase); err != nil {
		return Config{}, err
	}
	if cfg.HealthPort, err = intEnv(envHealthPort, cfg.HealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = intEnv(envMetricsPort, cfg.MetricsPort); err != nil {
		return Config{}, err
	}
	if cfg.APIPort, err = intEnv(envAPIPort, cfg.APIPort); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envProbeURL); ok {
		cfg.ProbeURL = value
	}
	if value, ok := lookupTrimmed(envMQTTBrokerURL); ok {
		cfg.MQTTBrokerURL = value
	}
	if value, ok := lookupTrimmed(envMQTTTopic); ok {
		cfg.MQTTTopic = value
	}
	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}
	if value, ok := lookupTrimmed(envChatWebhookURL); ok {
		cfg.ChatWebhookURL = value
	}
	if value, ok := lookupTrimmed(envSMTPAddr); ok {
		cfg.SMTPAddr = value
	}
	if value, ok := lookupTrimmed(envSMTPFrom); ok {
		cfg.SMTPFrom = value
	}
	if value, ok := lookupTrimmed(envSMTPTo); ok {
		for _, addr := range strings.Split(value, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				cfg.SMTPTo = append(cfg.SMTPTo, addr)
			}
		}
	}
	if value, ok := lookupTrimmed(envChannelsFile); ok {
		cfg.ChannelsFile = value
	}
	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}

	if cfg.ProbeURL != "" {
		if err := validateURL(cfg.ProbeURL, envProbeURL); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the invariants every applied configuration must satisfy.
func (c Config) Validate() error {
	if c.SampleInterval <= 0 {
		return errors.New("sample interval must be greater than zero")
	}
	if c.RetentionHours <= 0 {
		return errors.New("retention hours must be greater than zero")
	}
	t := c.Thresholds
	if !(t.Normal < t.High && t.High < t.Critical) {
		return fmt.Errorf("thresholds must satisfy normal < high < critical, got %.1f/%.1f/%.1f",
			t.Normal, t.High, t.Critical)
	}
	if c.CooldownHigh <= 0 || c.CooldownCritical <= 0 {
		return errors.New("alert cooldowns must be greater than zero")
	}
	if c.ProbeTimeout <= 0 {
		return errors.New("probe timeout must be greater than zero")
	}
	return nil
}

// HistoryCapacity derives the history ring capacity from retention and interval.
// Never less than one entry.
func (c Config) HistoryCapacity() int {
	capacity := int(float64(c.RetentionHours) * 3600 / c.SampleInterval.Seconds())
	if capacity < 1 {
		return 1
	}
	return capacity
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func intEnv(key string, fallback int) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
