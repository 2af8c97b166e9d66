package alert

import (
	"sync"
	"time"
)

// FakeReporter records alerts for test assertions. It is safe for concurrent
// use so tests can inspect alerts while a monitor loop is running.
type FakeReporter struct {
	mu     sync.Mutex
	alerts []Alert

	// ReportError, if set, will be returned by Report.
	ReportError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeReporter creates a FakeReporter.
func NewFakeReporter() *FakeReporter {
	return &FakeReporter{}
}

// Report records the alert.
func (f *FakeReporter) Report(sev Severity, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReportError != nil {
		return f.ReportError
	}
	f.alerts = append(f.alerts, Alert{Timestamp: time.Now(), Severity: sev, Message: message})
	return nil
}

// Close marks the reporter as closed.
func (f *FakeReporter) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// All returns a copy of the recorded alerts.
func (f *FakeReporter) All() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Alert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

// BySeverity returns the recorded alerts with the given severity.
func (f *FakeReporter) BySeverity(sev Severity) []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Alert
	for _, a := range f.alerts {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

// Reset clears recorded alerts.
func (f *FakeReporter) Reset() {
	f.mu.Lock()
	f.alerts = nil
	f.Closed = false
	f.ReportError = nil
	f.mu.Unlock()
}
