package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Comment download metrics
	CommentDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comment_downloads_total",
			Help: "Total number of comment downloads by outcome",
		},
		[]string{"endpoint", "format", "status"},
	)

	CommentsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_served_total",
			Help: "Total number of comments and replies returned to clients",
		},
	)

	CommentStreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "comment_stream_connections_active",
			Help: "Number of active comment download streams",
		},
	)
)
