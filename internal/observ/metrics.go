package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like
// without tripping duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	InFlight        prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// AuthEvents counts register/login/refresh outcomes by result.
	AuthEvents *prometheus.CounterVec
	// RealmsCreated counts committed realm creations.
	RealmsCreated prometheus.Counter
	// BotOperations counts bot writes by op and result.
	BotOperations *prometheus.CounterVec
	// RateLimited counts rejected requests by route.
	RateLimited *prometheus.CounterVec
	// PartitionsEnsured counts partition maintenance runs by result.
	PartitionsEnsured *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realmhub",
			Name:      "auth_events_total",
			Help:      "Account registrations, logins and token refreshes by result.",
		}, []string{"event", "result"}),
		RealmsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realmhub",
			Name:      "realms_created_total",
			Help:      "Realms created.",
		}),
		BotOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realmhub",
			Name:      "bot_operations_total",
			Help:      "Bot create/update/delete calls by result.",
		}, []string{"op", "result"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realmhub",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		PartitionsEnsured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realmhub",
			Name:      "partition_runs_total",
			Help:      "Message partition maintenance runs by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.InFlight,
		m.RequestsTotal,
		m.RequestDuration,
		m.AuthEvents,
		m.RealmsCreated,
		m.BotOperations,
		m.RateLimited,
		m.PartitionsEnsured,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result turns an error into the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
