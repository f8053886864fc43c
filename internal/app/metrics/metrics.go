package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "token_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "token_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "token_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "token_layer",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of applied ledger operations.",
		},
		[]string{"op"},
	)

	ledgerVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "token_layer",
			Subsystem: "ledger",
			Name:      "volume_units_total",
			Help:      "Token units moved per ledger operation kind.",
		},
		[]string{"op"},
	)

	rewardClaims = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "token_layer",
			Subsystem: "rewards",
			Name:      "claims_total",
			Help:      "Total number of reward claims that minted tokens.",
		},
	)

	settlementsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "token_layer",
			Subsystem: "station",
			Name:      "settlements_completed_total",
			Help:      "Total number of station settlements paid out.",
		},
	)

	escrowEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "token_layer",
			Subsystem: "escrow",
			Name:      "events_total",
			Help:      "Escrow lifecycle events by kind.",
		},
		[]string{"event"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerOps,
		ledgerVolume,
		rewardClaims,
		settlementsCompleted,
		escrowEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordLedgerOp counts a completed mint/burn/transfer and its volume.
func RecordLedgerOp(op string, amount uint64) {
	ledgerOps.WithLabelValues(op).Inc()
	ledgerVolume.WithLabelValues(op).Add(float64(amount))
}

// RecordRewardClaim counts a claim that resulted in a mint.
func RecordRewardClaim() {
	rewardClaims.Inc()
}

// RecordSettlementCompleted counts a settlement payout.
func RecordSettlementCompleted() {
	settlementsCompleted.Inc()
}

// RecordEscrowEvent counts an escrow lifecycle event (funded, released,
// disputed, resolved, cancelled, expired).
func RecordEscrowEvent(event string) {
	escrowEvents.WithLabelValues(event).Inc()
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses record ids so metric cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "accounts", "proposals", "stations", "settlements", "escrows", "rewards":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) == 2 {
			return "/" + parts[0] + "/:id"
		}
		return "/" + parts[0] + "/:id/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
