package storage

import (
	"math/big"
	"testing"

	"twapOracle/internal/model"
)

const testPair = "0x000000000000000000000000000000000000000000000000004254432f555344"

func spot(block uint64, price int64) model.SpotEvent {
	return model.SpotEvent{
		PairID:      testPair,
		Price:       big.NewInt(price),
		BlockNumber: block,
		Timestamp:   1700000000 + block*30,
	}
}

func blocks(events []model.SpotEvent) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.BlockNumber)
	}
	return out
}

func TestInsertBatchOrdersByBlock(t *testing.T) {
	store := NewMemoryStore()
	store.InsertBatch([]model.SpotEvent{spot(12, 1), spot(10, 1), spot(11, 1)})
	store.InsertBatch([]model.SpotEvent{spot(9, 1), spot(14, 1), spot(13, 1)})

	got := blocks(store.Snapshot())
	want := []uint64{9, 10, 11, 12, 13, 14}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %v != %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: %v != %v", got, want)
		}
	}
}

func TestInsertBatchLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	store.InsertBatch([]model.SpotEvent{spot(10, 100), spot(11, 110)})
	store.InsertBatch([]model.SpotEvent{spot(10, 200), spot(10, 300)})

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 events, got %d", len(snap))
	}
	if snap[0].Price.Int64() != 300 {
		t.Fatalf("duplicate block should keep last price, got %s", snap[0].Price)
	}
}

func TestInsertBatchDistinctPairsSameBlock(t *testing.T) {
	store := NewMemoryStore()
	other := spot(10, 5)
	other.PairID = "0x01"
	store.InsertBatch([]model.SpotEvent{spot(10, 1), other})

	if store.Len() != 2 {
		t.Fatalf("distinct pairs in one block should both be kept, got %d", store.Len())
	}
}

func TestEvictBeforeKeepsBoundary(t *testing.T) {
	store := NewMemoryStore()
	for b := uint64(1); b <= 10; b++ {
		store.InsertBatch([]model.SpotEvent{spot(b, 1)})
	}

	evicted := store.EvictBefore(5)
	if evicted != 4 {
		t.Fatalf("expected 4 evicted, got %d", evicted)
	}
	oldest, ok := store.OldestBlock()
	if !ok || oldest != 5 {
		t.Fatalf("boundary block should be retained, oldest=%d ok=%v", oldest, ok)
	}
	if store.EvictBefore(5) != 0 {
		t.Fatalf("second eviction at same bound should be a no-op")
	}
}

func TestEvictBeforeInvariant(t *testing.T) {
	for bound := uint64(0); bound <= 1200; bound += 37 {
		store := NewMemoryStore()
		batch := make([]model.SpotEvent, 0, 1000)
		for b := uint64(1000); b > 0; b-- {
			batch = append(batch, spot(b, int64(b)))
		}
		store.InsertBatch(batch)

		store.EvictBefore(bound)
		for _, ev := range store.Snapshot() {
			if ev.BlockNumber < bound {
				t.Fatalf("bound %d: retained block %d", bound, ev.BlockNumber)
			}
		}
	}
}

func TestEvictCompactsAndKeepsInserting(t *testing.T) {
	store := NewMemoryStore()
	for b := uint64(1); b <= 2000; b++ {
		store.InsertBatch([]model.SpotEvent{spot(b, int64(b))})
		if b > 120 {
			store.EvictBefore(b - 120)
		}
	}

	if store.Len() != 121 {
		t.Fatalf("expected 121 retained events, got %d", store.Len())
	}
	if store.head >= compactThreshold {
		t.Fatalf("store should have compacted, head=%d", store.head)
	}

	store.InsertBatch([]model.SpotEvent{spot(1950, 7)})
	snap := store.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i-1].BlockNumber >= snap[i].BlockNumber {
			t.Fatalf("order broken at %d: %d >= %d", i, snap[i-1].BlockNumber, snap[i].BlockNumber)
		}
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	store := NewMemoryStore()
	store.InsertBatch([]model.SpotEvent{spot(1, 1), spot(2, 2)})

	snap := store.Snapshot()
	store.EvictBefore(3)

	if len(snap) != 2 || snap[0].BlockNumber != 1 {
		t.Fatalf("snapshot changed after eviction: %v", blocks(snap))
	}
	if store.Len() != 0 {
		t.Fatalf("store should be empty, got %d", store.Len())
	}
}
