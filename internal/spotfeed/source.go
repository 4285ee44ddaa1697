package spotfeed

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"twapOracle/internal/model"
)

// LogFilterer is the subset of the chain client used to read oracle logs.
type LogFilterer interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
}

// Source fetches decoded spot events from one oracle contract.
type Source struct {
	client  LogFilterer
	oracle  common.Address
	decoder *Decoder
	logger  *zap.Logger
}

// NewSource builds a Source reading SubmittedSpotEntry logs from oracle.
func NewSource(client LogFilterer, oracle common.Address, logger *zap.Logger) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := NewDecoder()
	if err != nil {
		return nil, err
	}
	return &Source{client: client, oracle: oracle, decoder: decoder, logger: logger}, nil
}

// LatestBlockNumber returns the chain head.
func (s *Source) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return s.client.LatestBlockNumber(ctx)
}

// FetchSpotEvents returns decoded events for pairID in [fromBlock, toBlock].
// Logs that fail to decode are left out and counted in skipped.
func (s *Source) FetchSpotEvents(ctx context.Context, pairID string, fromBlock, toBlock uint64) ([]model.SpotEvent, int, error) {
	topics := [][]common.Hash{{s.decoder.EventID()}}
	if pairID != "" {
		topics = append(topics, []common.Hash{common.HexToHash(pairID)})
	}

	logs, err := s.client.FilterLogs(ctx, fromBlock, toBlock, []common.Address{s.oracle}, topics)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	events := make([]model.SpotEvent, 0, len(logs))
	for _, log := range logs {
		event, err := s.decoder.Decode(log)
		if err != nil {
			s.logger.Warn("skip spot entry",
				zap.Error(err),
				zap.Uint64("block_number", log.BlockNumber),
				zap.String("tx_hash", log.TxHash.Hex()),
				zap.Uint("log_index", log.Index),
			)
			skipped++
			continue
		}
		events = append(events, event)
	}
	return events, skipped, nil
}
