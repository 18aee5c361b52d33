package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados para auth_events_total.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics agrupa los colectores del servicio. Un *Metrics nil es valido y no registra nada.
type Metrics struct {
	registry     *prometheus.Registry
	authEvents   *prometheus.CounterVec
	tokensIssued *prometheus.CounterVec
	tokensReaped prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New crea y registra los colectores en un registry propio.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsvc_auth_events_total",
				Help: "Total number of auth use case executions",
			},
			[]string{"event", "outcome"},
		),
		tokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsvc_single_use_tokens_issued_total",
				Help: "Total number of single-use tokens issued",
			},
			[]string{"purpose"},
		),
		tokensReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authsvc_single_use_tokens_reaped_total",
				Help: "Total number of expired single-use tokens removed by the reaper",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsvc_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authsvc_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.authEvents, m.tokensIssued, m.tokensReaped, m.httpRequests, m.httpDuration)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) RecordTokenIssued(purpose string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) RecordTokensReaped(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensReaped.Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
