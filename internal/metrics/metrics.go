// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortlink"

// Redirect results.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

var (
	Redirects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirects_total",
		Help:      "Redirect requests by result.",
	}, []string{"result"})
	URLsShortened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "urls_shortened_total",
		Help:      "Mappings created.",
	})
	CodeCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "code_collisions_total",
		Help:      "Generated short codes that were already taken.",
	})
	ClickRecordFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "click_record_failures_total",
		Help:      "Clicks counted but not appended to the click log.",
	})
	CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Mapping cache lookups by outcome.",
	}, []string{"outcome"})
	QueuedClicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queued_clicks_total",
		Help:      "Click messages handled by the queue consumer by outcome.",
	}, []string{"outcome"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status code.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route", "code"})
)

func init() {
	prometheus.MustRegister(
		Redirects,
		URLsShortened,
		CodeCollisions,
		ClickRecordFailures,
		CacheRequests,
		QueuedClicks,
		HTTPRequestDuration,
	)
}

// Handler exposes the registered collectors in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
