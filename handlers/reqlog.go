package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// RequestIDHeader carries the ID of a request. Clients may set it, otherwise one
// is generated. It is echoed in the response.
const RequestIDHeader = "X-Request-ID"

// ReqLoggerHandler logs every request. Additionally it counts requests.
type ReqLoggerHandler struct {
	BaseHandler

	// Handler to actually handle requests
	Handler http.Handler
}

// ServeHTTP implements http.Handler
func (h ReqLoggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Request ID
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
		r.Header.Set(RequestIDHeader, id)
	}
	w.Header().Set(RequestIDHeader, id)

	// Pre-request metrics
	h.Metrics.APIRequestsTotal.With(prometheus.Labels{
		"path":   h.MetricsPath(r.URL.Path),
		"method": r.Method,
	}).Inc()

	// Log
	h.Logger.Debugf("[%s] %s %s", id, r.Method, r.URL.String())

	// Handle
	h.Handler.ServeHTTP(w, r)
}
