// Package alert delivers operator-facing safety alerts with abstraction for
// testing. Trips, failed actuations and denied resets are reported here;
// safety-relevant outcomes are never log-only.
package alert

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for safety interlock alerts.
const Topic = "factory/safety/interlock/alerts"

// Severity classifies an alert.
type Severity int

// Severity levels, lowest to highest.
const (
	SeverityInfo           Severity = 0 // informational notice
	SeverityTrip           Severity = 1 // safety trip, robot paused
	SeverityActionRequired Severity = 2 // operator action needed (e.g. reset denied)
	SeverityFailure        Severity = 3 // actuation did not confirm
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityTrip:
		return "trip"
	case SeverityActionRequired:
		return "action_required"
	case SeverityFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Reporter delivers alerts to operators.
type Reporter interface {
	// Report delivers one alert. Returns error if delivery fails
	// (should not crash the process).
	Report(sev Severity, message string) error

	// Close disconnects from the alert transport.
	Close() error
}

// Alert is one operator alert.
type Alert struct {
	Timestamp time.Time
	Severity  Severity
	Message   string
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Alert PayloadInner `json:"alert"`
}

// PayloadInner contains the alert details.
type PayloadInner struct {
	Timestamp string `json:"timestamp"`
	Severity  int    `json:"severity"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// FormatPayload creates the JSON payload for an alert.
func FormatPayload(a Alert) ([]byte, error) {
	payload := Payload{
		Alert: PayloadInner{
			Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
			Severity:  int(a.Severity),
			Level:     a.Severity.String(),
			Message:   a.Message,
		},
	}
	return json.Marshal(payload)
}
