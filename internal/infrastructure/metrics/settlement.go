package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appmetrics "github.com/orris-inc/offramp/internal/application/settlement/metrics"
)

type SettlementMetrics struct {
	depositsReceived   *prometheus.CounterVec
	depositAnomalies   *prometheus.CounterVec
	unmatchedDeposits  *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	providerFailures   *prometheus.CounterVec
	intentsExpired     prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

var _ appmetrics.Recorder = (*SettlementMetrics)(nil)

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the process-wide collectors, registering them on first use.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = newSettlementMetrics()
		settlementRegistry.register(prometheus.DefaultRegisterer)
	})
	return settlementRegistry
}

func newSettlementMetrics() *SettlementMetrics {
	return &SettlementMetrics{
		depositsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offramp_deposits_received_total",
			Help: "Deposit webhook deliveries by provider and outcome.",
		}, []string{"provider", "outcome"}),
		depositAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offramp_deposit_anomalies_total",
			Help: "Matched deposits whose amount deviated sharply from the quote.",
		}, []string{"asset"}),
		unmatchedDeposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offramp_unmatched_deposits_total",
			Help: "Final deposits written to the triage table by reason.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offramp_settlement_transitions_total",
			Help: "Settlement record state changes by target state.",
		}, []string{"state"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "offramp_provider_call_duration_seconds",
			Help:    "Latency of swap and payout provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offramp_provider_failures_total",
			Help: "Provider failures after a deposit was credited.",
		}, []string{"stage", "code"}),
		intentsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offramp_intents_expired_total",
			Help: "Pending intents moved to EXPIRED by the sweeper.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offramp_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "offramp_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *SettlementMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.depositsReceived,
		m.depositAnomalies,
		m.unmatchedDeposits,
		m.transitions,
		m.providerLatency,
		m.providerFailures,
		m.intentsExpired,
		m.httpRequests,
		m.httpRequestLatency,
	)
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func (m *SettlementMetrics) DepositReceived(provider, outcome string) {
	if m == nil {
		return
	}
	m.depositsReceived.WithLabelValues(orUnknown(provider), orUnknown(outcome)).Inc()
}

func (m *SettlementMetrics) DepositAnomaly(assetCode string) {
	if m == nil {
		return
	}
	m.depositAnomalies.WithLabelValues(orUnknown(assetCode)).Inc()
}

func (m *SettlementMetrics) UnmatchedDeposit(reason string) {
	if m == nil {
		return
	}
	m.unmatchedDeposits.WithLabelValues(orUnknown(reason)).Inc()
}

func (m *SettlementMetrics) SettlementTransition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(orUnknown(state)).Inc()
}

func (m *SettlementMetrics) ProviderCall(stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(orUnknown(stage), orUnknown(status)).Observe(elapsed.Seconds())
}

func (m *SettlementMetrics) ProviderFailure(stage, code string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(orUnknown(stage), orUnknown(code)).Inc()
}

func (m *SettlementMetrics) IntentsExpired(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.intentsExpired.Add(float64(count))
}

// ObserveHTTP records one served request. route is the gin route template.
func (m *SettlementMetrics) ObserveHTTP(method, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	route = orUnknown(route)
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpRequestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
