package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/nholik/thermal-sentinel/internal/alert"
	"github.com/nholik/thermal-sentinel/internal/config"
	"github.com/nholik/thermal-sentinel/internal/fan"
	"github.com/nholik/thermal-sentinel/internal/healthcheck"
	"github.com/nholik/thermal-sentinel/internal/logging"
	"github.com/nholik/thermal-sentinel/internal/metrics"
	"github.com/nholik/thermal-sentinel/internal/monitor"
	"github.com/nholik/thermal-sentinel/internal/server"
	"github.com/nholik/thermal-sentinel/internal/source"
	"github.com/nholik/thermal-sentinel/internal/telemetry"
	"github.com/nholik/thermal-sentinel/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.NewWithLevel(cfg.LogLevel)
	logger.Info().
		Dur("sample_interval", cfg.SampleInterval).
		Int("retention_hours", cfg.RetentionHours).
		Float64("threshold_normal", cfg.Thresholds.Normal).
		Float64("threshold_high", cfg.Thresholds.High).
		Float64("threshold_critical", cfg.Thresholds.Critical).
		Msg("thermal-sentinel starting")

	store, err := config.NewStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	controller := fan.NewController(logger, buildDriver(logger, cfg))
	sampler := source.NewSampler(logger, cfg.ProbeTimeout, cfg.SyntheticBase, buildProbers(logger, cfg))
	dispatcher := alert.NewDispatcher(logger, buildChannels(logger, cfg))

	collector := metrics.New()
	tracker := healthcheck.NewTracker()

	sink, closeSink := buildSink(logger, cfg)
	defer closeSink()

	m := monitor.New(logger, store, sampler, controller, dispatcher,
		monitor.WithMetrics(collector),
		monitor.WithTracker(tracker),
		monitor.WithTelemetry(sink),
	)

	api := server.NewAPI(logger, m, voice.NewRouter())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Start(ctx, logger, cfg.SampleInterval, tracker, collector, api.Handler(), server.Ports{
		Health:  cfg.HealthPort,
		Metrics: cfg.MetricsPort,
		API:     cfg.APIPort,
	})

	if err := m.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("monitor failed")
	}

	logger.Info().Msg("thermal-sentinel stopped")
}

// buildDriver prefers real GPIO hardware and falls back to the simulated
// driver so the daemon still samples and reports on hosts without a fan.
func buildDriver(logger zerolog.Logger, cfg config.Config) fan.Driver {
	driver, err := fan.NewSysfsDriver(cfg.FanGPIOPin)
	if err != nil {
		logger.Warn().Err(err).Int("pin", cfg.FanGPIOPin).
			Msg("gpio unavailable, using simulated fan driver")
		return fan.NewSimDriver()
	}
	logger.Info().Int("pin", cfg.FanGPIOPin).Msg("gpio fan driver ready")
	return driver
}

func buildProbers(logger zerolog.Logger, cfg config.Config) []source.Prober {
	probers := []source.Prober{source.NewLocalProber()}

	if cfg.ProbeURL != "" {
		remote, err := source.NewRemoteProber(cfg.ProbeURL, cfg.ProbeTimeout)
		if err != nil {
			logger.Warn().Err(err).Str("url", cfg.ProbeURL).Msg("remote probe disabled")
		} else {
			probers = append(probers, remote)
			logger.Info().Str("url", cfg.ProbeURL).Msg("remote probe configured")
		}
	}

	return probers
}

// buildChannels assembles notification channels from the channels file when
// one is configured, otherwise from the individual environment settings.
// With nothing configured a logging-only channel stands in so alert events
// still commit and dedupe normally.
func buildChannels(logger zerolog.Logger, cfg config.Config) []alert.Channel {
	var channels []alert.Channel

	specs, err := config.LoadChannelsFile(cfg.ChannelsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ChannelsFile).Msg("failed to load channels file")
	}

	if len(specs) > 0 {
		for _, spec := range specs {
			if channel := channelFromSpec(logger, spec); channel != nil {
				channels = append(channels, channel)
			}
		}
	} else {
		if cfg.SlackWebhookURL != "" {
			channels = append(channels, alert.NewSlackChannel(logger, "slack", cfg.SlackWebhookURL))
		}
		if cfg.ChatWebhookURL != "" {
			webhook, err := alert.NewWebhookChannel(logger, "webhook", cfg.ChatWebhookURL, "")
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to configure webhook channel")
			}
			if webhook != nil {
				channels = append(channels, webhook)
			}
		}
		if email := alert.NewEmailChannel(logger, "email", cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPTo, 0); email != nil {
			channels = append(channels, email)
		}
	}

	if len(channels) == 0 {
		channels = append(channels, alert.NewNoop(logger, "log",
			"no alert channels configured, alerts appear in the log only"))
	}

	for _, channel := range channels {
		logger.Info().Str("channel", channel.Name()).Msg("alert channel configured")
	}
	return channels
}

func channelFromSpec(logger zerolog.Logger, spec config.ChannelSpec) alert.Channel {
	switch spec.Type {
	case config.ChannelTypeSlack:
		return alert.NewSlackChannel(logger, spec.Name, spec.URL)
	case config.ChannelTypeWebhook:
		webhook, err := alert.NewWebhookChannel(logger, spec.Name, spec.URL, "")
		if err != nil {
			logger.Fatal().Err(err).Str("channel", spec.Name).Msg("failed to configure webhook channel")
		}
		if webhook == nil {
			return nil
		}
		return webhook
	case config.ChannelTypeEmail:
		email := alert.NewEmailChannel(logger, spec.Name, spec.SMTPAddr, spec.From, spec.To, spec.Timeout)
		if email == nil {
			return nil
		}
		return email
	default:
		logger.Warn().Str("channel", spec.Name).Str("type", spec.Type).Msg("unknown channel type, skipping")
		return nil
	}
}

func buildSink(logger zerolog.Logger, cfg config.Config) (telemetry.Sink, func()) {
	if cfg.MQTTBrokerURL == "" {
		return telemetry.NoopSink{}, func() {}
	}

	sink, err := telemetry.NewMQTTSink(logger, cfg.MQTTBrokerURL, "thermal-sentinel")
	if err != nil {
		logger.Warn().Err(err).Str("broker", cfg.MQTTBrokerURL).
			Msg("mqtt unavailable, telemetry disabled")
		return telemetry.NoopSink{}, func() {}
	}

	logger.Info().Str("broker", cfg.MQTTBrokerURL).Str("topic", cfg.MQTTTopic).Msg("mqtt telemetry ready")
	return sink, sink.Close
}
