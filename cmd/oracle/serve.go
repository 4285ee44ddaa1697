package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"twapOracle/internal/aggregate"
	"twapOracle/internal/api"
	"twapOracle/internal/chain"
	"twapOracle/internal/config"
	"twapOracle/internal/health"
	"twapOracle/internal/indexer"
	"twapOracle/internal/model"
	"twapOracle/internal/publish"
	"twapOracle/internal/signer"
	"twapOracle/internal/spotfeed"
	"twapOracle/internal/storage"
	"twapOracle/internal/twap"
)

const (
	ingestionWorker   = "ingestion"
	aggregationWorker = "aggregation"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	oracle, err := indexer.ParseAddress(cfg.OracleAddress)
	if err != nil {
		return err
	}
	pairID, err := spotfeed.PairID(cfg.Pair)
	if err != nil {
		return err
	}

	keys, err := signer.LoadKeyPair(cfg.SecretKey, cfg.PublicKey)
	if err != nil {
		return err
	}
	if cfg.SecretKey == "" {
		logger.Warn("no SECRET_KEY configured, generated an ephemeral key pair",
			zap.String("public_key", keys.PublicKeyHex()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	source, err := spotfeed.NewSource(chainClient, oracle, logger)
	if err != nil {
		return err
	}

	now := time.Now()
	ingestionBeat := health.NewHeartbeat(ingestionWorker, now)
	aggregationBeat := health.NewHeartbeat(aggregationWorker, now)
	monitor := health.NewMonitor(cfg.StaleAfter, time.Now, ingestionBeat, aggregationBeat)

	published := publish.NewCell()
	batches := make(chan model.Batch, cfg.QueueSize)

	runner := indexer.NewRunner(indexer.RunConfig{
		PairID:         pairID.Hex(),
		PollInterval:   cfg.PollInterval,
		LookbackBlocks: cfg.LookbackBlocks,
		ChunkSize:      cfg.ChunkSize,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
	}, source, batches, ingestionBeat, logger.Named(ingestionWorker))

	aggregator := aggregate.NewAggregator(
		aggregate.Config{RetentionBlocks: cfg.RetentionBlocks},
		storage.NewMemoryStore(),
		twap.NewEngine(cfg.Window),
		signer.New(keys),
		published,
		aggregationBeat,
		logger.Named(aggregationWorker),
	)

	server := api.NewServer(api.Options{
		Addr:        cfg.ListenAddr(),
		Pair:        cfg.Pair,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		CORSOrigins: cfg.CORSOrigins,
		Dropped:     runner.Dropped,
	}, published, monitor, logger.Named("api"))

	logger.Info("oracle start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("oracle", oracle.Hex()),
		zap.String("pair", cfg.Pair),
		zap.String("pair_id", pairID.Hex()),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Uint64("lookback_blocks", cfg.LookbackBlocks),
		zap.Uint64("retention_blocks", cfg.RetentionBlocks),
		zap.Duration("window", cfg.Window),
		zap.Int("queue_size", cfg.QueueSize),
		zap.String("public_key", keys.PublicKeyHex()),
		zap.String("listen", cfg.ListenAddr()),
	)

	// On shutdown aggregation still processes the batches already queued.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		return aggregator.Run(gctx, batches)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	err = g.Wait()
	logger.Info("oracle stopped", zap.Error(err))
	return err
}
