// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelFormat = "format"
	LabelResult = "result"
	LabelSlot   = "slot"
)

var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardrobe_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wardrobe_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Composition
var (
	ComposeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardrobe_compose_total",
			Help: "Draw lists computed, by result.",
		},
		[]string{LabelResult},
	)

	LayersComposed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wardrobe_layers_composed_total",
			Help: "Layers emitted by compose, by slot.",
		},
		[]string{LabelSlot},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wardrobe_render_duration_seconds",
			Help:    "Time to rasterize and encode an avatar image.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelFormat},
	)
)

// Review
var ReviewsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wardrobe_artwork_reviews_total",
		Help: "Artwork reviews by result (approved, rejected, error, skipped).",
	},
	[]string{LabelResult},
)
