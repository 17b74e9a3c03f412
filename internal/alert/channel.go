package alert

import (
	"context"

	"github.com/rs/zerolog"
)

// Channel delivers one alert to an external system. Implementations are
// best-effort: a failed Send affects only that channel's outcome.
type Channel interface {
	Name() string
	Send(ctx context.Context, sev Severity, subject, body string) error
}

// NoopChannel drops alerts. Used when a channel is configured off.
type NoopChannel struct {
	name string
}

// NewNoop returns a channel that logs once and does nothing thereafter.
func NewNoop(logger zerolog.Logger, name, reason string) *NoopChannel {
	if reason != "" {
		logger.Info().Str("channel", name).Msg(reason)
	}
	return &NoopChannel{name: name}
}

// Name implements Channel.
func (n *NoopChannel) Name() string {
	return n.name
}

// Send implements Channel.
func (n *NoopChannel) Send(_ context.Context, _ Severity, _, _ string) error {
	return nil
}
