package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"twapOracle/internal/health"
	"twapOracle/internal/metrics"
	"twapOracle/internal/model"
)

const (
	shutdownGrace = 10 * time.Second

	healthyMessage  = "Good"
	notReadyMessage = "Data not ready"
)

// ResultReader exposes the published attestation.
type ResultReader interface {
	Load() (model.AttestedResult, bool)
	Version() uint64
}

// HealthChecker combines worker heartbeats into a verdict.
type HealthChecker interface {
	Check() error
	Status() []health.WorkerStatus
}

// Options configures the HTTP layer.
type Options struct {
	Addr        string
	Pair        string
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	// Dropped reports batches discarded by ingestion back-pressure.
	Dropped func() uint64
}

// Server serves /health, /data, /status and /metrics. Handlers only read
// shared state and never block on the workers.
type Server struct {
	opts    Options
	results ResultReader
	monitor HealthChecker
	limiter *clientLimiter
	logger  *zap.Logger
	router  *mux.Router
	handler http.Handler
}

func NewServer(opts Options, results ResultReader, monitor HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		opts:    opts,
		results: results,
		monitor: monitor,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, opts.RateBurst)
	}

	s.routes()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
	}).Handler(s.router)

	return s
}

func (s *Server) routes() {
	s.router.Use(s.observe)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/data", s.rateLimit(http.HandlerFunc(s.handleData))).Methods(http.MethodGet)
	s.router.Handle("/status", s.rateLimit(http.HandlerFunc(s.handleStatus))).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.limiter != nil {
		cleanupCtx, stopCleanup := context.WithCancel(ctx)
		defer stopCleanup()
		go s.limiter.runCleanup(cleanupCtx, limiterCleanupPeriod, s.logger)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.monitor.Check(); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, healthyMessage)
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	result, ok := s.results.Load()
	if !ok {
		writeErr(w, http.StatusInternalServerError, notReadyMessage)
		return
	}

	writeOK(w, DataPayload{
		Twap:      result.Twap.Hex(),
		Signature: result.SignatureHex(),
		PK:        result.PublicKeyHex(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := StatusPayload{
		Pair:             s.opts.Pair,
		Healthy:          s.monitor.Check() == nil,
		Workers:          s.monitor.Status(),
		PublishedVersion: s.results.Version(),
	}
	if s.opts.Dropped != nil {
		payload.DroppedBatches = s.opts.Dropped()
	}
	if result, ok := s.results.Load(); ok {
		computedAt := result.ComputedAt
		payload.Ready = true
		payload.LatestBlock = result.LatestBlock
		payload.OldestBlock = result.OldestBlock
		payload.EventCount = result.EventCount
		payload.ComputedAt = &computedAt
	}

	writeOK(w, payload)
}
