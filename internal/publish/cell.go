package publish

import (
	"sync/atomic"

	"twapOracle/internal/model"
)

// Cell holds the latest attested result. A single writer publishes immutable
// snapshots; readers load them without locking.
type Cell struct {
	current atomic.Pointer[model.AttestedResult]
	version atomic.Uint64
}

func NewCell() *Cell {
	return &Cell{}
}

// Publish stores a copy of result stamped with the next version and returns it.
func (c *Cell) Publish(result model.AttestedResult) uint64 {
	version := c.version.Add(1)
	result.Version = version
	c.current.Store(&result)
	return version
}

// Load returns the latest result, or false if nothing is published.
func (c *Cell) Load() (model.AttestedResult, bool) {
	current := c.current.Load()
	if current == nil {
		return model.AttestedResult{}, false
	}
	return *current, true
}

// Reset withdraws the published result. The version counter keeps increasing.
func (c *Cell) Reset() {
	c.current.Store(nil)
}

// Version returns the last version handed out by Publish.
func (c *Cell) Version() uint64 {
	return c.version.Load()
}
