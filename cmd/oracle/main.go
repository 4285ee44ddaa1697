package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "oracle",
		Short:        "Signed TWAP oracle for on-chain spot entries",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest spot entries and serve the attested TWAP",
		RunE:  runServe,
	}

	serveCmd.Flags().String("rpc", "", "chain JSON-RPC URL")
	serveCmd.Flags().String("oracle-address", "", "oracle contract emitting SubmittedSpotEntry")
	serveCmd.Flags().String("pair", "BTC/USD", "trading pair")
	serveCmd.Flags().Duration("poll-interval", 15*time.Second, "ingestion poll interval")
	serveCmd.Flags().Uint64("lookback-blocks", 120, "most recent blocks requested per poll")
	serveCmd.Flags().Uint64("retention-blocks", 120, "retention window in blocks")
	serveCmd.Flags().Duration("window", time.Hour, "TWAP time window")
	serveCmd.Flags().Uint64("chunk-size", 1000, "max blocks per log query")
	serveCmd.Flags().Int("queue-size", 1, "ingestion to aggregation queue capacity")
	serveCmd.Flags().Duration("rpc-timeout", 10*time.Second, "per-call RPC timeout")
	serveCmd.Flags().Int("max-retries", 1, "retries for one RPC call within a poll")
	serveCmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "delay before an in-poll retry")
	serveCmd.Flags().Duration("stale-after", 2*time.Minute, "heartbeat staleness bound")
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 3000, "listen port")
	serveCmd.Flags().Float64("rate-limit", 50, "API requests per second per client (0 disables)")
	serveCmd.Flags().Int("rate-burst", 100, "API burst per client")
	serveCmd.Flags().StringSlice("cors-origins", []string{"*"}, "allowed CORS origins (comma-separated)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh SECRET_KEY / PUBLIC_KEY pair",
		RunE:  runKeygen,
	}

	root.AddCommand(keygenCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
