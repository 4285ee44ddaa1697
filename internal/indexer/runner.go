package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"twapOracle/internal/health"
	"twapOracle/internal/metrics"
	"twapOracle/internal/model"
)

var (
	// ErrRPC marks failures of the chain collaborator.
	ErrRPC = errors.New("rpc error")
	// ErrDecode marks polls where some oracle logs could not be decoded.
	ErrDecode = errors.New("decode error")
)

// EventSource is the chain collaborator consumed by the runner.
type EventSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FetchSpotEvents(ctx context.Context, pairID string, fromBlock, toBlock uint64) (events []model.SpotEvent, skipped int, err error)
}

// RunConfig holds runtime settings for the ingestion worker.
type RunConfig struct {
	PairID         string
	PollInterval   time.Duration
	LookbackBlocks uint64
	ChunkSize      uint64
	MaxRetries     int
	RetryBackoff   time.Duration
}

// Runner polls the chain on a fixed interval and hands batches to aggregation.
type Runner struct {
	cfg       RunConfig
	source    EventSource
	out       chan<- model.Batch
	heartbeat *health.Heartbeat
	logger    *zap.Logger
	now       func() time.Time
	dropped   atomic.Uint64
}

// NewRunner builds a Runner with its dependencies. The runner is the only
// sender on out and closes it when Run returns.
func NewRunner(cfg RunConfig, source EventSource, out chan<- model.Batch, heartbeat *health.Heartbeat, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		source:    source,
		out:       out,
		heartbeat: heartbeat,
		logger:    logger,
		now:       time.Now,
	}
}

// Dropped returns how many batches were discarded because the queue was full.
func (r *Runner) Dropped() uint64 {
	return r.dropped.Load()
}

// Run executes the polling loop until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.out)

	if r.source == nil {
		return fmt.Errorf("event source is nil")
	}
	if r.heartbeat == nil {
		return fmt.Errorf("heartbeat is nil")
	}
	if r.cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if r.cfg.ChunkSize == 0 {
		return fmt.Errorf("chunk size must be greater than zero")
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		_ = r.Poll(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("ingestion stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one ingestion cycle. Failures are recorded on the heartbeat and
// returned; they never stop the loop. Undecodable logs do not hold back the
// events that did decode, but the poll still counts as failed.
func (r *Runner) Poll(ctx context.Context) error {
	batch, skipped, err := r.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.heartbeat.Failure(r.now(), err)
		metrics.ObservePoll("error")
		r.logger.Warn("poll failed", zap.Error(err))
		return err
	}

	r.deliver(batch)

	if skipped > 0 {
		err := fmt.Errorf("%w: skipped %d undecodable logs in blocks %d-%d", ErrDecode, skipped, batch.FromBlock, batch.ToBlock)
		metrics.AddDecodeErrors(skipped)
		r.heartbeat.Failure(r.now(), err)
		r.logger.Warn("poll skipped logs", zap.Error(err))
		return err
	}

	r.heartbeat.Success(r.now())
	return nil
}

func (r *Runner) fetch(ctx context.Context) (model.Batch, int, error) {
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = r.source.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Debug("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return model.Batch{}, 0, fmt.Errorf("%w: get latest block: %w", ErrRPC, err)
	}

	from := uint64(0)
	if latest > r.cfg.LookbackBlocks {
		from = latest - r.cfg.LookbackBlocks
	}

	ranges, err := SplitRange(from, latest, r.cfg.ChunkSize)
	if err != nil {
		return model.Batch{}, 0, err
	}

	events := make([]model.SpotEvent, 0)
	skipped := 0
	for _, blockRange := range ranges {
		fetched, rangeSkipped, err := r.fetchRangeWithRetry(ctx, blockRange)
		if err != nil {
			return model.Batch{}, 0, fmt.Errorf("%w: fetch events %d-%d: %w", ErrRPC, blockRange.From, blockRange.To, err)
		}
		skipped += rangeSkipped
		events = append(events, filterPair(fetched, r.cfg.PairID)...)
	}

	return model.Batch{
		Events:    events,
		FromBlock: from,
		ToBlock:   latest,
		FetchedAt: r.now().UTC(),
	}, skipped, nil
}

func (r *Runner) fetchRangeWithRetry(ctx context.Context, blockRange BlockRange) ([]model.SpotEvent, int, error) {
	var (
		events  []model.SpotEvent
		skipped int
	)
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		events, skipped, err = r.source.FetchSpotEvents(ctx, r.cfg.PairID, blockRange.From, blockRange.To)
		if err != nil {
			r.logger.Debug("fetch events failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	return events, skipped, err
}

// deliver never blocks: when aggregation still holds a queued batch the new
// one is dropped and counted. The next poll covers the same block span.
func (r *Runner) deliver(batch model.Batch) {
	select {
	case r.out <- batch:
		metrics.ObservePoll("delivered")
		metrics.AddIngestedEvents(len(batch.Events))
		r.logger.Debug("batch delivered",
			zap.Int("events", len(batch.Events)),
			zap.Uint64("from", batch.FromBlock),
			zap.Uint64("to", batch.ToBlock),
		)
	default:
		dropped := r.dropped.Add(1)
		metrics.ObservePoll("dropped")
		metrics.IncBatchesDropped()
		r.logger.Warn("hand-off queue full, batch dropped",
			zap.Int("events", len(batch.Events)),
			zap.Uint64("to", batch.ToBlock),
			zap.Uint64("dropped_total", dropped),
		)
	}
}
