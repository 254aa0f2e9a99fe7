package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric name
const namespace = "crossdomain_xmlrpc"

// Metrics holds all the available internal metrics
type Metrics struct {
	// APIRequestsTotal is the number of requests received.
	//
	// Labels: path (request path), method (request HTTP method)
	APIRequestsTotal *prometheus.CounterVec

	// APIResponseDurationsMilliseconds is the number of milliseconds it takes to
	// complete API responses.
	//
	// Labels: path (request path), method (request HTTP method),
	// status_code (response HTTP status code)
	APIResponseDurationsMilliseconds *prometheus.HistogramVec

	// APIHandlerPanicsTotal is the number of times HTTP request handlers have paniced.
	//
	// Labels: path(request path), method( request HTTP method)
	APIHandlerPanicsTotal *prometheus.CounterVec

	// DispatchFailuresTotal is the number of XML-RPC calls which failed without
	// producing a response document.
	//
	// Labels: path (request path)
	DispatchFailuresTotal *prometheus.CounterVec

	// GzipResponsesTotal is the number of responses sent gzip compressed
	GzipResponsesTotal prometheus.Counter
}

// NewMetrics creates a Metrics struct with all the Prometheus metrics recorders
// initialized and registered with reg
func NewMetrics(reg prometheus.Registerer) Metrics {
	metrics := Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests received",
		}, []string{"path", "method"}),
		APIResponseDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_durations_milliseconds",
			Help:      "Time, in milliseconds, it took to respond to API requests",
		}, []string{"path", "method", "status_code"}),
		APIHandlerPanicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "handler_panics_total",
			Help:      "Total number of HTTP handlers which have panicked while processing a request",
		}, []string{"path", "method"}),
		DispatchFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "dispatch_failures_total",
			Help:      "Total number of XML-RPC calls answered with an internal server error",
		}, []string{"path"}),
		GzipResponsesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "gzip_responses_total",
			Help:      "Total number of XML-RPC responses sent gzip compressed",
		}),
	}

	reg.MustRegister(metrics.APIRequestsTotal)
	reg.MustRegister(metrics.APIResponseDurationsMilliseconds)
	reg.MustRegister(metrics.APIHandlerPanicsTotal)
	reg.MustRegister(metrics.DispatchFailuresTotal)
	reg.MustRegister(metrics.GzipResponsesTotal)

	return metrics
}

// StartTimer starts a Timer. Calling .Finish() on the returned timer records the
// time elapsed in milliseconds.
func (m Metrics) StartTimer() Timer {
	return Timer{
		startTime: time.Now(),
	}
}
