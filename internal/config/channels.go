package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Channel types accepted in the channels file.
const (
	ChannelTypeSlack   = "slack"
	ChannelTypeWebhook = "webhook"
	ChannelTypeEmail   = "email"
)

// ChannelSpec describes one notification channel.
type ChannelSpec struct {
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	URL      string        `yaml:"url,omitempty"`
	SMTPAddr string        `yaml:"smtp_addr,omitempty"`
	From     string        `yaml:"from,omitempty"`
	To       []string      `yaml:"to,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// ChannelsFile is the parsed YAML structure for notification channels:
// channels: [{name, type, url|smtp_addr/from/to, timeout}]
type ChannelsFile struct {
	Channels []ChannelSpec `yaml:"channels"`
}

// LoadChannelsFile parses a YAML channels file from the given path.
// Returns nil if path is empty (no channels file).
func LoadChannelsFile(path string) ([]ChannelSpec, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	var cf ChannelsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse channels file: %w", err)
	}

	if err := validateChannels(cf.Channels); err != nil {
		return nil, err
	}

	return cf.Channels, nil
}

// validateChannels ensures all channel specs are valid.
func validateChannels(specs []ChannelSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("channels file contains no channels")
	}

	seen := make(map[string]bool)

	for i, spec := range specs {
		if spec.Name == "" {
			return fmt.Errorf("channel %d: name is required", i)
		}
		if seen[spec.Name] {
			return fmt.Errorf("channel %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true

		switch spec.Type {
		case ChannelTypeSlack, ChannelTypeWebhook:
			if spec.URL == "" {
				return fmt.Errorf("channel %q: url is required for type %s", spec.Name, spec.Type)
			}
			if err := validateURL(spec.URL, "url"); err != nil {
				return fmt.Errorf("channel %q: %w", spec.Name, err)
			}
		case ChannelTypeEmail:
			if spec.SMTPAddr == "" {
				return fmt.Errorf("channel %q: smtp_addr is required for type email", spec.Name)
			}
			if spec.From == "" || len(spec.To) == 0 {
				return fmt.Errorf("channel %q: from and to are required for type email", spec.Name)
			}
		default:
			return fmt.Errorf("channel %q: unknown type %q", spec.Name, spec.Type)
		}

		if spec.Timeout < 0 {
			return fmt.Errorf("channel %q: timeout cannot be negative", spec.Name)
		}
	}

	return nil
}
