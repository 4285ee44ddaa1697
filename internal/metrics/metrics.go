package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twap_oracle"

var (
	// Registry holds the service collectors.
	Registry = prometheus.NewRegistry()

	ingestPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "polls_total",
			Help:      "Ingestion polls by result.",
		},
		[]string{"result"},
	)

	ingestEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Spot events delivered to aggregation.",
		},
	)

	ingestDecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "decode_errors_total",
			Help:      "Oracle logs skipped because they could not be decoded.",
		},
	)

	batchesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_dropped_total",
			Help:      "Batches dropped because the hand-off queue was full.",
		},
	)

	aggregationCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "cycles_total",
			Help:      "Aggregation cycles by result.",
		},
		[]string{"result"},
	)

	aggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of aggregation cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	storeEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "events",
			Help:      "Events retained in the window.",
		},
	)

	publishedVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_version",
			Help:      "Version of the currently published attestation.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		ingestPolls,
		ingestEvents,
		ingestDecodeErrors,
		batchesDropped,
		aggregationCycles,
		aggregationDuration,
		storeEvents,
		publishedVersion,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObservePoll(result string) {
	ingestPolls.WithLabelValues(result).Inc()
}

func AddIngestedEvents(n int) {
	ingestEvents.Add(float64(n))
}

func AddDecodeErrors(n int) {
	ingestDecodeErrors.Add(float64(n))
}

func IncBatchesDropped() {
	batchesDropped.Inc()
}

func ObserveCycle(result string, elapsed time.Duration) {
	aggregationCycles.WithLabelValues(result).Inc()
	aggregationDuration.Observe(elapsed.Seconds())
}

func SetStoreEvents(n int) {
	storeEvents.Set(float64(n))
}

func SetPublishedVersion(v uint64) {
	publishedVersion.Set(float64(v))
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
