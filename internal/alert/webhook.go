package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"subject":{{ toJson .Subject }},"body":{{ toJson .Body }},"sent_at":"{{ .SentAt.Format "2006-01-02T15:04:05Z07:00" }}"}`

// WebhookPayload is the template context for webhook alerts.
type WebhookPayload struct {
	Subject string
	Body    string
	SentAt  time.Time
}

// WebhookChannel sends alerts to a generic chat-bot webhook.
type WebhookChannel struct {
	logger   zerolog.Logger
	name     string
	template *template.Template
	poster   *httpPoster
}

// NewWebhookChannel creates a webhook channel with the provided template.
// Returns nil, nil when the URL is empty (channel not configured).
func NewWebhookChannel(logger zerolog.Logger, name, webhookURL, tmpl string) (*WebhookChannel, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookChannel{
		logger:   logger,
		name:     name,
		template: parsed,
		poster:   newHTTPPoster(logger, name, webhookURL, "application/json", defaultTiming),
	}, nil
}

// Name implements Channel.
func (c *WebhookChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *WebhookChannel) Send(ctx context.Context, sev Severity, subject, body string) error {
	if c == nil {
		return nil
	}

	if err := c.poster.waitForRateLimit(ctx, sev); err != nil {
		return err
	}

	payload := WebhookPayload{
		Subject: subject,
		Body:    body,
		SentAt:  time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := c.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := c.poster.postWithRetry(ctx, buf.Bytes()); err != nil {
		return err
	}

	c.logger.Debug().
		Str("channel", c.name).
		Str("subject", subject).
		Msg("webhook alert sent")

	return nil
}
