package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// VerbHandler handles the HTTP verbs served by a ConnHandler
type VerbHandler interface {
	// ServeOptions handles an OPTIONS request to any path
	ServeOptions(w http.ResponseWriter, r *http.Request)

	// ServePost handles a POST request to any path
	ServePost(w http.ResponseWriter, r *http.Request)
}

// ConnHandler routes requests to a VerbHandler by HTTP verb. Extra GET endpoints
// can be attached with HandleGet. Every other request is answered with
// 501 Not Implemented.
type ConnHandler struct {
	BaseHandler

	// router matches requests to handlers
	router *mux.Router
}

// NewConnHandler creates a ConnHandler serving verbs
func NewConnHandler(base BaseHandler, verbs VerbHandler) *ConnHandler {
	h := &ConnHandler{
		BaseHandler: base,
		router:      mux.NewRouter(),
	}

	// Request paths are checked verbatim against the RPC paths
	h.router.SkipClean(true)

	h.router.MethodNotAllowedHandler = http.HandlerFunc(h.unsupported)
	h.router.NotFoundHandler = http.HandlerFunc(h.unsupported)

	h.router.Methods(http.MethodOptions).HandlerFunc(verbs.ServeOptions)
	h.router.Methods(http.MethodPost).HandlerFunc(verbs.ServePost)

	return h
}

// HandleGet serves GET requests to path with handler
func (h *ConnHandler) HandleGet(path string, handler http.Handler) {
	h.router.Handle(path, handler).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler
func (h *ConnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// unsupported answers requests no handler accepts
func (h *ConnHandler) unsupported(w http.ResponseWriter, r *http.Request) {
	h.Logger.Debugf("unsupported method %s %s", r.Method, r.URL.Path)
	h.RespondText(w, http.StatusNotImplemented, fmt.Sprintf("Unsupported method (%q)", r.Method))
}
