// Package alert classifies readings into severity levels and dispatches
// deduplicated notifications across independent channels.
package alert

import (
	"fmt"

	"github.com/nholik/thermal-sentinel/internal/config"
)

// Severity is an alert level derived from the high/critical thresholds.
type Severity string

const (
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Classify maps a temperature to a severity with strict descending
// precedence: above critical wins over above high. Readings at or below the
// high threshold never alert, even when they are warm enough to drive the
// fan.
func Classify(temp float64, t config.Thresholds) (Severity, bool) {
	switch {
	case temp > t.Critical:
		return SeverityCritical, true
	case temp > t.High:
		return SeverityHigh, true
	default:
		return "", false
	}
}

// Subject renders the notification subject line for a severity.
func Subject(sev Severity) string {
	return fmt.Sprintf("%s temperature alert", sev)
}

// Body renders the notification body for a severity and reading.
func Body(sev Severity, temp float64, t config.Thresholds) string {
	threshold := t.High
	if sev == SeverityCritical {
		threshold = t.Critical
	}
	return fmt.Sprintf("Temperature %.1f°C exceeded the %s threshold of %.1f°C.", temp, sev, threshold)
}
