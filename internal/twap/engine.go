package twap

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"twapOracle/internal/fixedpoint"
	"twapOracle/internal/model"
)

// ErrNotReady is returned when there are no events to average.
var ErrNotReady = errors.New("twap: not ready")

// Engine computes a time-weighted average price over a block-ordered snapshot.
type Engine struct {
	Window time.Duration
}

func NewEngine(window time.Duration) *Engine {
	return &Engine{Window: window}
}

// Compute weights each event's price by how long it stayed in effect inside
// [now-Window, now]. The first event is stretched back to the window start and
// the last one forward to now.
func (e *Engine) Compute(events []model.SpotEvent, now uint64) (fixedpoint.Value, error) {
	if len(events) == 0 {
		return fixedpoint.Value{}, ErrNotReady
	}

	cursor := e.lowerBound(now)
	weights := make([]*big.Int, 0, len(events))
	var total uint64

	for i, ev := range events {
		end := now
		if i+1 < len(events) && events[i+1].Timestamp < now {
			end = events[i+1].Timestamp
		}
		if end <= cursor {
			continue
		}

		duration := end - cursor
		weights = append(weights, fixedpoint.Weight(ev.Price, duration))
		total += duration
		cursor = end
	}

	value, err := fixedpoint.Divide(fixedpoint.Sum(weights...), total)
	if err != nil {
		return fixedpoint.Value{}, fmt.Errorf("average %d events: %w", len(events), err)
	}
	return value, nil
}

func (e *Engine) lowerBound(now uint64) uint64 {
	window := uint64(e.Window / time.Second)
	if window >= now {
		return 0
	}
	return now - window
}
