// Package telemetry publishes raw readings to a pub/sub broker. Publishing
// happens on every sample regardless of severity and is fire-and-forget;
// it is entirely separate from the alerting path.
package telemetry

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Sink accepts telemetry payloads. Publish must never block the caller
// beyond a short bounded wait and must never return delivery errors.
type Sink interface {
	Publish(topic string, payload []byte)
}

const (
	connectTimeout = 5 * time.Second
	publishWait    = 2 * time.Second
)

// MQTTSink publishes payloads over MQTT at QoS 0.
type MQTTSink struct {
	logger zerolog.Logger
	client mqtt.Client
}

// NewMQTTSink connects to the broker. Returns an error when the broker is
// unreachable; callers fall back to a NoopSink.
func NewMQTTSink(logger zerolog.Logger, brokerURL, clientID string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timeout", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", brokerURL, err)
	}

	return &MQTTSink{logger: logger, client: client}, nil
}

// Publish implements Sink. Failures are logged and dropped.
func (s *MQTTSink) Publish(topic string, payload []byte) {
	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishWait) {
		s.logger.Warn().Str("topic", topic).Msg("telemetry publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("telemetry publish failed")
	}
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

// NoopSink drops telemetry.
type NoopSink struct{}

// Publish implements Sink.
func (NoopSink) Publish(string, []byte) {}
