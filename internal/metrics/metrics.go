// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablescope_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablescope_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// QueryEvaluations counts JQL evaluations by outcome (ok, fault).
	QueryEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablescope_query_evaluations_total",
			Help: "Total number of JQL evaluations",
		},
		[]string{"outcome"},
	)
	// QueryDuration is the time spent building selection masks.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tablescope_query_duration_seconds",
			Help:    "JQL evaluation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	// SessionsStored counts dataset uploads stored into a session.
	SessionsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablescope_sessions_stored_total",
			Help: "Total number of datasets stored into sessions",
		},
	)
	// SessionsEvicted counts sessions removed by reason (ttl, capacity, deleted).
	SessionsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablescope_sessions_evicted_total",
			Help: "Total number of sessions removed from the store",
		},
		[]string{"reason"},
	)
	// UploadRows is the row count of ingested datasets.
	UploadRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tablescope_upload_rows",
			Help:    "Rows per ingested dataset",
			Buckets: prometheus.ExponentialBuckets(10, 10, 7),
		},
	)
)
