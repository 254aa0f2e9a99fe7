package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kscout/crossdomain-xmlrpc/compress"
	"github.com/kscout/crossdomain-xmlrpc/dispatch"
	"github.com/kscout/crossdomain-xmlrpc/req"
	"github.com/kscout/crossdomain-xmlrpc/xmlrpc"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http/httpguts"
)

// Diagnostic headers sent with internal server errors when
// Config.SendTracebackHeader is set
const (
	ExceptionHeader = "X-exception"
	TracebackHeader = "X-traceback"
)

// RPCEndpoint is the VerbHandler of the XML-RPC server. Preflight requests are
// answered by Preflight, calls are handled by RPC.
type RPCEndpoint struct {
	// Preflight answers OPTIONS requests
	Preflight PreFlightOptionsHandler

	// RPC handles POST requests
	RPC RPCHandler
}

// ServeOptions implements VerbHandler
func (e RPCEndpoint) ServeOptions(w http.ResponseWriter, r *http.Request) {
	e.Preflight.ServeHTTP(w, r)
}

// ServePost implements VerbHandler
func (e RPCEndpoint) ServePost(w http.ResponseWriter, r *http.Request) {
	e.RPC.ServeHTTP(w, r)
}

// RPCHandler reads XML-RPC calls from POST bodies, forwards them to Dispatcher
// and writes back the response
type RPCHandler struct {
	BaseHandler

	// Dispatcher produces responses for calls
	Dispatcher dispatch.Dispatcher
}

// ServeHTTP implements http.Handler
func (h RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// {{{1 Check that the path is an RPC path
	target := requestTarget(r)
	if !h.isRPCPathValid(target) {
		h.Logger.Debugf("no RPC endpoint at %s", target)
		h.RespondText(w, http.StatusNotFound, "No such page")
		return
	}

	// {{{1 Read body
	body, err := req.ReadBody(r.Body, r.ContentLength, h.Cfg.MaxChunkSize)
	if err == req.ErrLengthRequired {
		h.RespondText(w, http.StatusLengthRequired, "Length Required")
		return
	} else if err != nil {
		h.respondInternalError(w, r, err)
		return
	}

	data, ok := h.decodeRequestContent(w, r, body)
	if !ok {
		return
	}

	// {{{1 Dispatch
	resp, err := h.Dispatcher.Dispatch(r.Context(), target, data)
	if err != nil {
		h.respondInternalError(w, r, err)
		return
	}

	// {{{1 Respond
	hdr := w.Header()
	hdr.Set("Content-Type", xmlrpc.ContentType)

	if h.shouldCompress(r, resp) {
		if compressed, err := compress.Encode(resp); err != nil {
			h.Logger.Debugf("sending uncompressed response: %s", err.Error())
		} else {
			resp = compressed
			hdr.Set("Content-Encoding", compress.Gzip)
			h.Metrics.GzipResponsesTotal.Inc()
		}
	}

	hdr.Set("Content-Length", strconv.Itoa(len(resp)))
	hdr.Set(AllowOriginHeader, AnyOrigin)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(resp); err != nil {
		h.Logger.Errorf("failed to write response to %s: %s", r.RemoteAddr, err.Error())
	}
}

// requestTarget returns the request target as sent by the client, query
// included, ex., "/rpc?x=1"
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// isRPCPathValid reports whether path accepts calls. An empty Config.RPCPaths
// accepts every path.
func (h RPCHandler) isRPCPathValid(path string) bool {
	if len(h.Cfg.RPCPaths) == 0 {
		return true
	}

	for _, p := range h.Cfg.RPCPaths {
		if p == path {
			return true
		}
	}
	return false
}

// decodeRequestContent undoes the request's Content-Encoding. If the body cannot
// be decoded a response is sent and ok is false.
func (h RPCHandler) decodeRequestContent(w http.ResponseWriter, r *http.Request, body []byte) ([]byte, bool) {
	encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))

	switch encoding {
	case "", "identity":
		return body, true

	case compress.Gzip:
		data, err := compress.Decode(body, h.Cfg.MaxDecodeSize)
		if err != nil {
			h.Logger.Debugf("failed to decode gzip request body: %s", err.Error())
			h.RespondText(w, http.StatusBadRequest, "error decoding gzip content")
			return nil, false
		}
		return data, true
	}

	h.RespondText(w, http.StatusNotImplemented, fmt.Sprintf("encoding %q not supported", encoding))
	return nil, false
}

// shouldCompress reports whether resp is large enough to compress and the client
// accepts gzip
func (h RPCHandler) shouldCompress(r *http.Request, resp []byte) bool {
	return h.Cfg.EncodeThreshold >= 0 &&
		len(resp) > h.Cfg.EncodeThreshold &&
		compress.AcceptsGzip(r.Header.Get("Accept-Encoding"))
}

// respondInternalError answers a call which produced no response document
func (h RPCHandler) respondInternalError(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Errorf("internal error while handling call to %s: %s", r.URL.RequestURI(), err.Error())
	h.Metrics.DispatchFailuresTotal.With(prometheus.Labels{"path": h.MetricsPath(r.URL.Path)}).Inc()

	hdr := w.Header()
	if h.Cfg.SendTracebackHeader {
		hdr.Set(ExceptionHeader, headerValue(err.Error()))
		hdr.Set(TracebackHeader, headerValue(dispatch.Traceback(err)))
	}
	hdr.Set("Content-Length", "0")
	hdr.Set(AllowOriginHeader, AnyOrigin)

	w.WriteHeader(http.StatusInternalServerError)
}

// headerValue folds multi-line text onto one line and drops bytes which may not
// appear in a header value
func headerValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if httpguts.ValidHeaderFieldValue(s) {
		return s
	}

	// Fields already removed tabs and line breaks, so only the remaining control
	// characters, ex., NUL or DEL, are dropped here
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
