package handlers

import (
	"net/http"
	"strconv"
)

// PreflightAllowMethods are the methods preflight responses allow
const PreflightAllowMethods = "POST, GET, OPTIONS"

// PreflightMaxAge is how long, in seconds, browsers may cache a preflight
// response: seven days
const PreflightMaxAge = 60 * 60 * 24 * 7

// PreFlightOptionsHandler responds to OPTIONS requests with headers which set headers
// required to allow CORS. Every request is allowed, and every request header the
// browser asks for is allowed.
type PreFlightOptionsHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h PreFlightOptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	hdr.Set(AllowOriginHeader, AnyOrigin)
	hdr.Set(AllowHeadersHeader, r.Header.Get(RequestHeadersHeader))
	hdr.Set(AllowMethodsHeader, PreflightAllowMethods)
	hdr.Set(MaxAgeHeader, strconv.Itoa(PreflightMaxAge))

	// Preflight response bodies must be empty
	hdr.Set("Content-Length", "0")
	hdr.Set("Content-Type", "text/plain")

	w.WriteHeader(http.StatusOK)
}
