package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kscout/crossdomain-xmlrpc/config"
	"github.com/kscout/crossdomain-xmlrpc/metrics"

	"github.com/Noah-Huppert/golog"
)

// BaseHandler provides helper methods and commonly used variables for API endpoints to base
// their http.Handlers off
type BaseHandler struct {
	// Ctx is the application context
	Ctx context.Context

	// Logger logs information
	Logger golog.Logger

	// Cfg is the application configuration
	Cfg *config.Config

	// Metrics holds internal Prometheus metrics recorders
	Metrics metrics.Metrics
}

// GetChild makes a child instance of the base handler with a prefix
func (h BaseHandler) GetChild(prefix string) BaseHandler {
	h.Logger = h.Logger.GetChild(prefix)

	return h
}

// unmatchedPath is the metrics path label of requests to paths which serve
// nothing
const unmatchedPath = "unmatched"

// knownGetPaths are the GET endpoints attached by the server
var knownGetPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// MetricsPath returns the path label used in metrics for a request path.
// Preflight requests may target any path, so paths which are neither RPC paths
// nor known GET endpoints share one label.
func (h BaseHandler) MetricsPath(path string) string {
	if h.Cfg == nil || len(h.Cfg.RPCPaths) == 0 || knownGetPaths[path] {
		return path
	}

	for _, p := range h.Cfg.RPCPaths {
		if p == path {
			return path
		}
	}
	return unmatchedPath
}

// RespondJSON sends an object as a JSON encoded response
func (h BaseHandler) RespondJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(resp); err != nil {
		panic(fmt.Errorf("failed to encode response as JSON: %s", err.Error()))
	}
}

// RespondText sends a plain text response with an explicit Content-Length
func (h BaseHandler) RespondText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))
	w.WriteHeader(status)

	if _, err := w.Write([]byte(text)); err != nil {
		h.Logger.Errorf("failed to write %d response: %s", status, err.Error())
	}
}
