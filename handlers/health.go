package handlers

import (
	"net/http"
)

// MethodLister lists the XML-RPC methods a server publishes
type MethodLister interface {
	Methods() []string
}

// HealthHandler is used to determine if the server is running
type HealthHandler struct {
	BaseHandler

	// Methods reports the published XML-RPC methods
	Methods MethodLister
}

// ServeHTTP implements http.Handler
func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"methods": len(h.Methods.Methods()),
	})
}
