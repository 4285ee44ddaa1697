package indexer

import (
	"strings"

	"twapOracle/internal/model"
)

func filterPair(events []model.SpotEvent, pairID string) []model.SpotEvent {
	if pairID == "" {
		return events
	}
	out := events[:0:0]
	for _, ev := range events {
		if strings.EqualFold(ev.PairID, pairID) {
			out = append(out, ev)
		}
	}
	return out
}
