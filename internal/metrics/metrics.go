package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the application. Each instance
// owns its registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Submissions     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Rollovers       prometheus.Counter
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agecalc_submissions_total",
			Help: "Total number of date submissions by outcome",
		}, []string{"outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agecalc_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
		Rollovers: f.NewCounter(prometheus.CounterOpts{
			Name: "agecalc_clock_rollovers_total",
			Help: "Total number of date changes observed by the clock",
		}),
	}
}

// IncrementSubmissions counts one submission with the given outcome.
func (m *Metrics) IncrementSubmissions(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

// IncrementRollovers counts one date change.
func (m *Metrics) IncrementRollovers() {
	m.Rollovers.Inc()
}

// ObserveRequest records the latency of one request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
