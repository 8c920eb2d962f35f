// Package observability provides Prometheus metrics for the detection
// pipeline.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	ChunksProcessed   prometheus.Counter
	WindowsClassified prometheus.Counter
	Detections        prometheus.Counter
	SoundsPlayed      *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	DecodeErrors      prometheus.Counter
	InferenceDuration prometheus.Histogram
	InferenceErrors   prometheus.Counter
}

// NewMetrics creates and registers all metric collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}

	m.ChunksProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "woodpecker_audio_chunks_total",
		Help: "Total number of inbound audio chunks consumed",
	})
	m.WindowsClassified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "woodpecker_windows_classified_total",
		Help: "Total number of analysis windows classified",
	})
	m.Detections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "woodpecker_detections_total",
		Help: "Total number of windows at or above the confidence threshold",
	})
	m.SoundsPlayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "woodpecker_sounds_played_total",
		Help: "Total number of reaction sounds dispatched, by category",
	}, []string{"category"})
	m.ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "woodpecker_active_sessions",
		Help: "Number of currently connected streaming sessions",
	})
	m.DecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "woodpecker_decode_errors_total",
		Help: "Total number of inbound messages dropped due to decode failures",
	})
	m.InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "woodpecker_inference_duration_seconds",
		Help:    "Classifier inference duration per window",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	m.InferenceErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "woodpecker_inference_errors_total",
		Help: "Total number of windows dropped due to classifier failures",
	})

	collectors := []prometheus.Collector{
		m.ChunksProcessed, m.WindowsClassified, m.Detections, m.SoundsPlayed,
		m.ActiveSessions, m.DecodeErrors, m.InferenceDuration, m.InferenceErrors,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
