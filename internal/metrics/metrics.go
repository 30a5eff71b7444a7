// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "datastatx"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// UploadBytes observes accepted CSV uploads.
	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "upload_bytes",
			Help:      "Size of uploaded CSV files in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	// AnalysisTotal counts statistics requests by outcome.
	AnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Statistics and heatmap requests by outcome",
		},
		[]string{"outcome"},
	)

	// ChartTotal counts query-to-chart requests; outcome is ok,
	// remote_service or local_processing.
	ChartTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "requests_total",
			Help:      "Query to chart requests by outcome",
		},
		[]string{"outcome"},
	)

	ChartDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "duration_seconds",
			Help:      "Time from query to rendered chart",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)
