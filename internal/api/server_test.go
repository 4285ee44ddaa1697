package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"twapOracle/internal/fixedpoint"
	"twapOracle/internal/health"
	"twapOracle/internal/publish"
	"twapOracle/internal/signer"
)

const (
	testSecretKey = "d150f1224d8c75c25f186d0d18c058201a4f6e9ca13237ade9eb9988ef391de5"
	testPublicKey = "0252dd2b8b729ab74497c172887b4cc56b427dcf0bf0368a3f93b5ff79b3f09410"
)

type env struct {
	server      *Server
	cell        *publish.Cell
	ingestion   *health.Heartbeat
	aggregation *health.Heartbeat
	now         time.Time
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	start := time.Unix(1_700_000_000, 0)
	e := &env{
		cell:        publish.NewCell(),
		ingestion:   health.NewHeartbeat("ingestion", start),
		aggregation: health.NewHeartbeat("aggregation", start),
		now:         start.Add(30 * time.Second),
	}
	monitor := health.NewMonitor(2*time.Minute, func() time.Time { return e.now }, e.ingestion, e.aggregation)
	e.server = NewServer(opts, e.cell, monitor, nil)
	return e
}

func (e *env) publish(t *testing.T, price uint64) {
	t.Helper()
	keys, err := signer.LoadKeyPair(testSecretKey, "")
	require.NoError(t, err)
	result, err := signer.New(keys).Attest(fixedpoint.FromUint64(price))
	require.NoError(t, err)
	result.LatestBlock = 1000
	result.OldestBlock = 880
	e.cell.Publish(result)
}

func (e *env) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthGood(t *testing.T) {
	e := newEnv(t, Options{})

	rec := e.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"Ok":"Good"}`, rec.Body.String())
}

func TestHealthNamesStaleAggregation(t *testing.T) {
	e := newEnv(t, Options{})
	e.now = e.now.Add(5 * time.Minute)
	e.ingestion.Success(e.now)
	e.aggregation.Failure(e.now, errors.New("sign: boom"))

	rec := e.get("/health")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var msg string
	require.NoError(t, json.Unmarshal(decode(t, rec)["Err"], &msg))
	require.Contains(t, msg, "aggregation")
	require.Contains(t, msg, "sign: boom")
}

func TestHealthToleratesRecentFailure(t *testing.T) {
	e := newEnv(t, Options{})
	e.ingestion.Failure(e.now, errors.New("rpc timeout"))

	rec := e.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDataNotReady(t *testing.T) {
	e := newEnv(t, Options{})

	rec := e.get("/data")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"Err":"Data not ready"}`, rec.Body.String())
}

func TestDataPublished(t *testing.T) {
	e := newEnv(t, Options{})
	e.publish(t, 150)

	rec := e.get("/data")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload DataPayload
	require.NoError(t, json.Unmarshal(decode(t, rec)["Ok"], &payload))
	require.Len(t, payload.Twap, 64)
	require.Len(t, payload.Signature, 128)
	require.Equal(t, testPublicKey, payload.PK)

	value, err := fixedpoint.DecodeHex(payload.Twap)
	require.NoError(t, err)
	require.Equal(t, "150", value.IntegerString())
}

func TestStatusReportsWorkersAndDrops(t *testing.T) {
	e := newEnv(t, Options{Pair: "BTC/USD", Dropped: func() uint64 { return 3 }})
	e.publish(t, 42)

	rec := e.get("/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload StatusPayload
	require.NoError(t, json.Unmarshal(decode(t, rec)["Ok"], &payload))
	require.Equal(t, "BTC/USD", payload.Pair)
	require.True(t, payload.Healthy)
	require.True(t, payload.Ready)
	require.Len(t, payload.Workers, 2)
	require.Equal(t, uint64(1), payload.PublishedVersion)
	require.Equal(t, uint64(3), payload.DroppedBatches)
	require.Equal(t, uint64(1000), payload.LatestBlock)
	require.Equal(t, uint64(880), payload.OldestBlock)
}

func TestRateLimitedData(t *testing.T) {
	e := newEnv(t, Options{RateLimit: 1, RateBurst: 1})

	first := e.get("/data")
	require.Equal(t, http.StatusInternalServerError, first.Code)

	second := e.get("/data")
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	// Health probes are never limited.
	require.Equal(t, http.StatusOK, e.get("/health").Code)
}

func TestRequestIDAndMethods(t *testing.T) {
	e := newEnv(t, Options{})

	rec := e.get("/health")
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/data", nil)
	rec = httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, Options{})
	e.get("/health")

	rec := e.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "twap_oracle_http_requests_total")
}
