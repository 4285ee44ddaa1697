package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"twapOracle/internal/fixedpoint"
	"twapOracle/internal/health"
	"twapOracle/internal/metrics"
	"twapOracle/internal/model"
	"twapOracle/internal/publish"
	"twapOracle/internal/storage"
	"twapOracle/internal/twap"
)

// Attester signs a TWAP value.
type Attester interface {
	Attest(v fixedpoint.Value) (model.AttestedResult, error)
}

// Config controls aggregation behavior.
type Config struct {
	RetentionBlocks uint64
}

// Aggregator consumes batches, maintains the event window and publishes
// attested TWAPs. It is the only writer of the store and the published cell.
type Aggregator struct {
	cfg       Config
	store     storage.EventStore
	engine    *twap.Engine
	attester  Attester
	published *publish.Cell
	heartbeat *health.Heartbeat
	logger    *zap.Logger
	now       func() time.Time
}

func NewAggregator(
	cfg Config,
	store storage.EventStore,
	engine *twap.Engine,
	attester Attester,
	published *publish.Cell,
	heartbeat *health.Heartbeat,
	logger *zap.Logger,
) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:       cfg,
		store:     store,
		engine:    engine,
		attester:  attester,
		published: published,
		heartbeat: heartbeat,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes batches until in is closed or ctx is cancelled. On
// cancellation, batches already queued are still processed.
func (a *Aggregator) Run(ctx context.Context, in <-chan model.Batch) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if a.attester == nil {
		return fmt.Errorf("attester is nil")
	}
	if a.published == nil || a.heartbeat == nil {
		return fmt.Errorf("published cell and heartbeat are required")
	}

	for {
		select {
		case <-ctx.Done():
			a.drain(in)
			a.logger.Info("aggregation stopped")
			return nil
		case batch, ok := <-in:
			if !ok {
				a.logger.Info("aggregation input closed")
				return nil
			}
			_ = a.Process(batch)
		}
	}
}

// drain processes batches already queued without waiting for more.
func (a *Aggregator) drain(in <-chan model.Batch) {
	for {
		select {
		case batch, ok := <-in:
			if !ok {
				return
			}
			_ = a.Process(batch)
		default:
			return
		}
	}
}

// Process runs one aggregation cycle. Computation and signing failures are
// recorded on the heartbeat and leave the published result untouched.
func (a *Aggregator) Process(batch model.Batch) error {
	start := a.now()

	a.store.InsertBatch(batch.Events)

	latest := batch.LatestBlock()
	minBlock := uint64(0)
	if latest > a.cfg.RetentionBlocks {
		minBlock = latest - a.cfg.RetentionBlocks
	}
	evicted := a.store.EvictBefore(minBlock)

	snapshot := a.store.Snapshot()
	metrics.SetStoreEvents(len(snapshot))

	value, err := a.engine.Compute(snapshot, uint64(start.Unix()))
	if errors.Is(err, twap.ErrNotReady) {
		a.published.Reset()
		a.heartbeat.Success(a.now())
		metrics.ObserveCycle("not_ready", a.now().Sub(start))
		a.logger.Debug("twap not ready", zap.Uint64("latest_block", latest), zap.Int("evicted", evicted))
		return err
	}
	if err != nil {
		return a.fail(start, fmt.Errorf("compute twap: %w", err))
	}

	result, err := a.attester.Attest(value)
	if err != nil {
		return a.fail(start, fmt.Errorf("attest twap: %w", err))
	}
	result.LatestBlock = latest
	result.OldestBlock, _ = a.store.OldestBlock()
	result.EventCount = len(snapshot)
	result.ComputedAt = start.UTC()

	version := a.published.Publish(result)
	metrics.SetPublishedVersion(version)
	a.heartbeat.Success(a.now())
	metrics.ObserveCycle("published", a.now().Sub(start))

	a.logger.Info("twap published",
		zap.Uint64("version", version),
		zap.String("twap", value.Hex()),
		zap.String("twap_int", value.IntegerString()),
		zap.Int("events", len(batch.Events)),
		zap.Int("retained", len(snapshot)),
		zap.Int("evicted", evicted),
		zap.Uint64("latest_block", latest),
		zap.Uint64("oldest_block", result.OldestBlock),
	)
	return nil
}

func (a *Aggregator) fail(start time.Time, err error) error {
	a.heartbeat.Failure(a.now(), err)
	metrics.ObserveCycle("error", a.now().Sub(start))
	a.logger.Error("aggregation cycle failed", zap.Error(err))
	return err
}
