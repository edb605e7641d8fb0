// Package metrics exposes Prometheus instrumentation for the scoring service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spigell/carbon-match/internal/scoring"
)

const namespace = "carbon_match"

// Registry holds every collector the service reports. It implements
// scoring.Sink so an Engine can feed it directly.
type Registry struct {
	registry *prometheus.Registry

	Scores          *prometheus.HistogramVec
	Fallbacks       *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a Registry with its own prometheus.Registry. Process and Go
// runtime collectors are included when withRuntime is set.
func New(withRuntime bool) *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "score_value",
				Help:      "Distribution of computed scores by scorer",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"scorer"},
		),

		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total number of times a default replaced a computed value",
			},
			[]string{"scorer", "factor"},
		),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),
	}

	r.registry.MustRegister(r.Scores, r.Fallbacks, r.Requests, r.RequestDuration)
	if withRuntime {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return r
}

// Record implements scoring.Sink.
func (r *Registry) Record(ev scoring.Event) {
	if ev.Fallback {
		r.Fallbacks.WithLabelValues(ev.Scorer, ev.Factor).Inc()
	}
	if ev.Factor == scoring.FactorResult {
		r.Scores.WithLabelValues(ev.Scorer).Observe(ev.Value)
	}
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route string, code int, took time.Duration) {
	r.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
