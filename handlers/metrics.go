package handlers

import (
	"net/http"
	"strconv"

	"github.com/kscout/crossdomain-xmlrpc/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHandler records the duration and status code of every response.
//
// Request counts are recorded by ReqLoggerHandler. A handler which panics before
// responding is recorded with a 500 status.
type MetricsHandler struct {
	BaseHandler

	// Handler will actually handle requests
	Handler http.Handler
}

// ServeHTTP will observe custom metrics and let the .Handler handle the request
func (h MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respCode := http.StatusInternalServerError
	metricsW := metrics.NewMetricsResponseWriter(w, func(code int) {
		respCode = code
	})

	durationTimer := h.Metrics.StartTimer()
	defer func() {
		durationTimer.Finish(h.Metrics.APIResponseDurationsMilliseconds.With(prometheus.Labels{
			"path":        h.MetricsPath(r.URL.Path),
			"method":      r.Method,
			"status_code": strconv.Itoa(respCode),
		}))
	}()

	h.Handler.ServeHTTP(metricsW, r)
}
