package model

import (
	"math/big"
	"time"
)

// SpotEvent is a decoded spot-price submission for one pair.
type SpotEvent struct {
	PairID      string   `json:"pair_id"`
	Price       *big.Int `json:"price"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	TxHash      string   `json:"tx_hash,omitempty"`
	LogIndex    uint64   `json:"log_index,omitempty"`
}

// Batch is one poll's worth of events handed from ingestion to aggregation.
type Batch struct {
	Events    []SpotEvent
	FromBlock uint64
	// ToBlock is the chain head observed by the poll.
	ToBlock   uint64
	FetchedAt time.Time
}

// LatestBlock returns the highest block the batch refers to.
func (b Batch) LatestBlock() uint64 {
	latest := b.ToBlock
	for _, ev := range b.Events {
		if ev.BlockNumber > latest {
			latest = ev.BlockNumber
		}
	}
	return latest
}
