package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	Answers          *prometheus.CounterVec
}

// New registers all collectors on a fresh registry. poolSize is sampled on
// every scrape.
func New(poolSize func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flagguess",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "flagguess",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flagguess",
			Name:      "http_requests_in_flight",
			Help:      "Number of requests currently being processed",
		}),
		Answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flagguess",
				Name:      "answers_total",
				Help:      "Submitted answers by outcome",
			},
			[]string{"result"},
		),
	}
	if poolSize != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "flagguess",
			Name:      "question_pool_size",
			Help:      "Flags currently cached in the question pool",
		}, func() float64 { return float64(poolSize()) })
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnswer counts one evaluated answer.
func (m *Metrics) ObserveAnswer(correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.Answers.WithLabelValues(result).Inc()
}

// ObserveRequest records one finished request for route.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.RequestCounter.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
