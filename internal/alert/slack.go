package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// SlackChannel posts alerts to a Slack incoming webhook.
type SlackChannel struct {
	logger zerolog.Logger
	name   string
	poster *httpPoster
}

// SlackOption customizes SlackChannel behavior.
type SlackOption func(*SlackChannel)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(timing timingConfig) SlackOption {
	return func(c *SlackChannel) {
		c.poster.timing = timing
	}
}

// NewSlackChannel creates a Slack channel, or a noop channel when the
// webhook is empty.
func NewSlackChannel(logger zerolog.Logger, name, webhookURL string, opts ...SlackOption) Channel {
	if webhookURL == "" {
		return NewNoop(logger, name, "slack webhook not configured; channel disabled")
	}

	channel := &SlackChannel{
		logger: logger,
		name:   name,
		poster: newHTTPPoster(logger, name, webhookURL, "application/json", defaultTiming),
	}

	for _, opt := range opts {
		opt(channel)
	}

	return channel
}

// Name implements Channel.
func (c *SlackChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *SlackChannel) Send(ctx context.Context, sev Severity, subject, body string) error {
	if err := c.poster.waitForRateLimit(ctx, sev); err != nil {
		return err
	}

	message := buildSlackMessage(subject, body)
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := c.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	c.logger.Debug().
		Str("channel", c.name).
		Str("subject", subject).
		Msg("slack alert sent")

	return nil
}

func buildSlackMessage(subject, body string) slack.WebhookMessage {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", subject, false, false))
	section := slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", body, false, false), nil, nil)

	blockSet := slack.Blocks{BlockSet: []slack.Block{header, section}}
	return slack.WebhookMessage{
		Text:   subject,
		Blocks: &blockSet,
	}
}
