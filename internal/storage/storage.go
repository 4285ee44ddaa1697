package storage

import "twapOracle/internal/model"

// EventStore retains spot events ordered by block number.
type EventStore interface {
	InsertBatch(events []model.SpotEvent)
	EvictBefore(minBlock uint64) int
	Snapshot() []model.SpotEvent
	Len() int
	OldestBlock() (uint64, bool)
}
