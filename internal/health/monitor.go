package health

import (
	"fmt"
	"time"
)

// StaleError names the first worker whose last success is too old.
type StaleError struct {
	Worker    string
	Age       time.Duration
	LastError string
}

func (e *StaleError) Error() string {
	msg := fmt.Sprintf("%s worker stale: no successful cycle for %s", e.Worker, e.Age.Truncate(time.Second))
	if e.LastError != "" {
		msg += ": " + e.LastError
	}
	return msg
}

// WorkerStatus is the per-worker view exposed on the status endpoint.
type WorkerStatus struct {
	Name                string    `json:"name"`
	Healthy             bool      `json:"healthy"`
	LastSuccess         time.Time `json:"last_success"`
	LastError           string    `json:"last_error,omitempty"`
	LastErrorAt         time.Time `json:"last_error_at,omitempty"`
	ConsecutiveFailures uint64    `json:"consecutive_failures"`
}

// Monitor combines worker heartbeats into one verdict.
type Monitor struct {
	staleAfter time.Duration
	now        func() time.Time
	beats      []*Heartbeat
}

func NewMonitor(staleAfter time.Duration, now func() time.Time, beats ...*Heartbeat) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{staleAfter: staleAfter, now: now, beats: beats}
}

// Check returns nil when every worker succeeded within the staleness bound,
// otherwise a *StaleError for the first one that did not.
func (m *Monitor) Check() error {
	now := m.now()
	for _, hb := range m.beats {
		beat := hb.Snapshot()
		if age := now.Sub(beat.LastSuccess); age > m.staleAfter {
			return &StaleError{Worker: hb.Name(), Age: age, LastError: beat.LastError}
		}
	}
	return nil
}

// Status reports every worker, healthy or not.
func (m *Monitor) Status() []WorkerStatus {
	now := m.now()
	out := make([]WorkerStatus, 0, len(m.beats))
	for _, hb := range m.beats {
		beat := hb.Snapshot()
		out = append(out, WorkerStatus{
			Name:                hb.Name(),
			Healthy:             now.Sub(beat.LastSuccess) <= m.staleAfter,
			LastSuccess:         beat.LastSuccess,
			LastError:           beat.LastError,
			LastErrorAt:         beat.LastErrorAt,
			ConsecutiveFailures: beat.ConsecutiveFailures,
		})
	}
	return out
}
