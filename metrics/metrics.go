package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htmxdemo_http_requests_total",
			Help: "The total number of requests served, by route and status code",
		},
		[]string{"route", "method", "code"},
	)

	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "htmxdemo_http_request_duration_seconds",
			Help:    "Time taken to serve a request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "htmxdemo_http_in_flight_requests",
			Help: "The number of requests currently being served",
		},
	)

	DataOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htmxdemo_data_outcomes_total",
			Help: "Outcomes drawn by the data route",
		},
		[]string{"outcome"},
	)

	RejectedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "htmxdemo_rejected_requests_total",
			Help: "Requests turned away before reaching a route",
		},
		[]string{"reason"},
	)
)

// Instrument records request count and latency for h under the given route
// name.
func Instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerInFlight(InFlight,
		promhttp.InstrumentHandlerDuration(RequestLatency.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(RequestsTotal.MustCurryWith(labels), h),
		),
	)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
