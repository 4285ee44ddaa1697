package storage

import (
	"cmp"
	"slices"
	"sync"

	"twapOracle/internal/model"
)

const compactThreshold = 256

// MemoryStore keeps events in a slice sorted by (block number, pair). Evicted
// events are trimmed from the front by advancing head.
type MemoryStore struct {
	mu     sync.RWMutex
	events []model.SpotEvent
	head   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func compareEvents(a, b model.SpotEvent) int {
	if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.PairID, b.PairID)
}

// InsertBatch adds events keeping block order. An event with the same pair and
// block number as a retained one replaces it; later events in the batch win.
func (s *MemoryStore) InsertBatch(events []model.SpotEvent) {
	if len(events) == 0 {
		return
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, compareEvents)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range sorted {
		active := s.events[s.head:]
		if len(active) == 0 || compareEvents(active[len(active)-1], ev) < 0 {
			s.events = append(s.events, ev)
			continue
		}

		idx, found := slices.BinarySearchFunc(active, ev, compareEvents)
		if found {
			active[idx] = ev
			continue
		}
		s.events = slices.Insert(s.events, s.head+idx, ev)
	}
}

// EvictBefore drops events with block number below minBlock and returns how many
// were removed. Events at exactly minBlock are kept.
func (s *MemoryStore) EvictBefore(minBlock uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.events[s.head:]
	n, _ := slices.BinarySearchFunc(active, minBlock, func(ev model.SpotEvent, block uint64) int {
		return cmp.Compare(ev.BlockNumber, block)
	})
	if n == 0 {
		return 0
	}

	clear(active[:n])
	s.head += n

	if s.head >= compactThreshold && s.head*2 >= len(s.events) {
		live := copy(s.events, s.events[s.head:])
		clear(s.events[live:])
		s.events = s.events[:live]
		s.head = 0
	}
	return n
}

// Snapshot returns a copy of the retained events in block order.
func (s *MemoryStore) Snapshot() []model.SpotEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events[s.head:])
}

// Len returns the number of retained events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events) - s.head
}

// OldestBlock returns the lowest retained block number.
func (s *MemoryStore) OldestBlock() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == s.head {
		return 0, false
	}
	return s.events[s.head].BlockNumber, true
}
