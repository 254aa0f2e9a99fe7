package handlers

import (
	"net/http"
)

// Headers used to enable cross origin resource sharing
const (
	// AllowOriginHeader tells browsers which origins may read a response
	AllowOriginHeader = "Access-Control-Allow-Origin"

	// AllowHeadersHeader tells browsers which request headers may be sent
	AllowHeadersHeader = "Access-Control-Allow-Headers"

	// AllowMethodsHeader tells browsers which methods may be used
	AllowMethodsHeader = "Access-Control-Allow-Methods"

	// MaxAgeHeader tells browsers how long a preflight response may be cached
	MaxAgeHeader = "Access-Control-Max-Age"

	// RequestHeadersHeader lists the headers a browser wants to send
	RequestHeadersHeader = "Access-Control-Request-Headers"

	// AnyOrigin allows every origin
	AnyOrigin = "*"
)

// CORSHandler enables cross origin resource sharing (CORS) on every response of
// Handler, including error responses
type CORSHandler struct {
	BaseHandler

	// Handler to enabled CORS for
	Handler http.Handler
}

// ServeHTTP runs CORSHandler.Handler with CORS enabled
func (h CORSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(AllowOriginHeader, AnyOrigin)

	h.Handler.ServeHTTP(w, r)
}
