package health

import (
	"sync/atomic"
	"time"
)

// Beat is a point-in-time copy of a worker's liveness record.
type Beat struct {
	LastSuccess         time.Time
	LastError           string
	LastErrorAt         time.Time
	ConsecutiveFailures uint64
}

// Heartbeat is written only by its owning worker and read by anyone.
type Heartbeat struct {
	name string
	beat atomic.Pointer[Beat]
}

// NewHeartbeat starts the record as if the worker had just succeeded, so a
// freshly started worker gets one staleness period of grace.
func NewHeartbeat(name string, start time.Time) *Heartbeat {
	h := &Heartbeat{name: name}
	h.beat.Store(&Beat{LastSuccess: start})
	return h
}

func (h *Heartbeat) Name() string {
	return h.name
}

// Success records a completed cycle.
func (h *Heartbeat) Success(at time.Time) {
	h.beat.Store(&Beat{LastSuccess: at})
}

// Failure records a failed cycle, keeping the last success time.
func (h *Heartbeat) Failure(at time.Time, err error) {
	prev := h.beat.Load()
	next := &Beat{
		LastSuccess:         prev.LastSuccess,
		LastErrorAt:         at,
		ConsecutiveFailures: prev.ConsecutiveFailures + 1,
	}
	if err != nil {
		next.LastError = err.Error()
	}
	h.beat.Store(next)
}

// Snapshot returns a copy of the current record.
func (h *Heartbeat) Snapshot() Beat {
	return *h.beat.Load()
}
