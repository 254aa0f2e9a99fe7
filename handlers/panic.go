package handlers

import (
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// PanicHandler runs another http.Handler and recovers from any panics which occur.
// The panic is answered with an empty 500 response and its stack trace is logged
// along with the request ID.
type PanicHandler struct {
	BaseHandler

	// Handler to run
	Handler http.Handler
}

// ServeHTTP implements http.Handler
func (h PanicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if recovery := recover(); recovery != nil {
			// Metrics
			h.Metrics.APIHandlerPanicsTotal.With(prometheus.Labels{
				"path":   h.MetricsPath(r.URL.Path),
				"method": r.Method,
			}).Inc()

			// Handle panic
			h.Logger.Errorf("[%s] panicked while handling %s %s: %#v",
				r.Header.Get(RequestIDHeader), r.Method, r.URL.Path, recovery)
			h.Logger.Error(string(debug.Stack()))

			w.Header().Set("Content-Length", "0")
			w.WriteHeader(http.StatusInternalServerError)
		}
	}()

	h.Handler.ServeHTTP(w, r)
}
