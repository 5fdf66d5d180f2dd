package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	indexTotal      *prometheus.CounterVec
	indexDuration   *prometheus.HistogramVec
	indexInFlight   prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	sectionsIndexed *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "koala",
			Subsystem: "worker",
			Name:      "guide_index_total",
			Help:      "Total indexed guides by status.",
		},
		[]string{"service", "status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "koala",
			Subsystem: "worker",
			Name:      "guide_index_duration_seconds",
			Help:      "Guide indexing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	indexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "koala",
			Subsystem: "worker",
			Name:      "guide_index_in_flight",
			Help:      "Number of in-flight guide indexing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "koala",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between guide upload and indexing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	sectionsIndexed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "koala",
			Subsystem: "worker",
			Name:      "guide_sections",
			Help:      "Distribution of sections per indexed guide.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)

	registry.MustRegister(indexTotal, indexDuration, indexInFlight, queueLag, sectionsIndexed)

	return &WorkerMetrics{
		registry:        registry,
		indexTotal:      indexTotal,
		indexDuration:   indexDuration,
		indexInFlight:   indexInFlight,
		queueLag:        queueLag,
		sectionsIndexed: sectionsIndexed,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartGuide() {
	m.indexInFlight.Inc()
}

func (m *WorkerMetrics) FinishGuide(service string, duration time.Duration, err error) {
	m.indexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.indexTotal.WithLabelValues(service, status).Inc()
	m.indexDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveSections(service string, sections int) {
	if sections <= 0 {
		return
	}
	m.sectionsIndexed.WithLabelValues(service).Observe(float64(sections))
}
