package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics tracks ledger traffic, reconciliation outcomes and faucet
// usage. All methods are nil-safe so components can run uninstrumented.
type ClientMetrics struct {
	rpcRequests *prometheus.CounterVec
	rpcLatency  *prometheus.HistogramVec
	reconcile   *prometheus.CounterVec
	polls       prometheus.Histogram
	faucet      *prometheus.CounterVec
	submissions *prometheus.CounterVec
}

var (
	clientMetricsOnce sync.Once
	clientRegistry    *ClientMetrics
)

// Client returns the lazily-initialised client metrics registered with the
// default Prometheus registerer.
func Client() *ClientMetrics {
	clientMetricsOnce.Do(func() {
		clientRegistry = NewClientMetrics(prometheus.DefaultRegisterer)
	})
	return clientRegistry
}

// NewClientMetrics builds and registers a fresh set of collectors on reg.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onecoupon",
			Subsystem: "ledger",
			Name:      "requests_total",
			Help:      "JSON-RPC requests issued to the ledger segmented by method and outcome.",
		}, []string{"method", "outcome"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "onecoupon",
			Subsystem: "ledger",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of ledger JSON-RPC requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onecoupon",
			Subsystem: "reconcile",
			Name:      "outcomes_total",
			Help:      "Reconciliation loop terminal states.",
		}, []string{"state"}),
		polls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "onecoupon",
			Subsystem: "reconcile",
			Name:      "polls",
			Help:      "Number of polls issued before a reconciliation loop settled.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		faucet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onecoupon",
			Subsystem: "faucet",
			Name:      "requests_total",
			Help:      "Faucet requests segmented by outcome (success, error, cooldown).",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onecoupon",
			Subsystem: "wallet",
			Name:      "submissions_total",
			Help:      "Mutating calls submitted through the wallet segmented by function and outcome.",
		}, []string{"function", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.rpcRequests, m.rpcLatency, m.reconcile, m.polls, m.faucet, m.submissions)
	}
	return m
}

// ObserveRPC records a ledger request.
func (m *ClientMetrics) ObserveRPC(method string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.rpcRequests.WithLabelValues(method, outcome(err)).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordReconcile records a terminal reconciliation state and the polls it took.
func (m *ClientMetrics) RecordReconcile(state string, polls int) {
	if m == nil {
		return
	}
	m.reconcile.WithLabelValues(state).Inc()
	m.polls.Observe(float64(polls))
}

// RecordFaucet records a faucet attempt outcome.
func (m *ClientMetrics) RecordFaucet(result string) {
	if m == nil {
		return
	}
	m.faucet.WithLabelValues(result).Inc()
}

// RecordSubmission records a wallet submission for function.
func (m *ClientMetrics) RecordSubmission(function string, err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(function, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// StatusLabel renders an HTTP status for metric labels.
func StatusLabel(status int) string {
	return strconv.Itoa(status)
}
