package metrics

import (
	"net/http"
)

// MetricsResponseWriter wraps an net/http.ResponseWriter and reports the response
// status code
type MetricsResponseWriter struct {
	// ResponseWriter which will actually perform work
	ResponseWriter http.ResponseWriter

	// OnWriteHeader is called with the status code when the response header is
	// sent, whether by WriteHeader or by the first Write
	OnWriteHeader OnWriteHeaderFunc

	// wroteHeader is shared by copies of the writer
	wroteHeader *bool
}

// OnWriteHeaderFunc is a function which will be called any time ResponseWriter.WriteHeader is called
type OnWriteHeaderFunc func(code int)

// NewMetricsResponseWriter wraps w
func NewMetricsResponseWriter(w http.ResponseWriter, onWriteHeader OnWriteHeaderFunc) MetricsResponseWriter {
	return MetricsResponseWriter{
		ResponseWriter: w,
		OnWriteHeader:  onWriteHeader,
		wroteHeader:    new(bool),
	}
}

// Header calls ResponseWriter.Header
func (r MetricsResponseWriter) Header() http.Header {
	return r.ResponseWriter.Header()
}

// Write calls ResponseWriter.Write
func (r MetricsResponseWriter) Write(b []byte) (int, error) {
	r.report(http.StatusOK)
	return r.ResponseWriter.Write(b)
}

// WriteHeader reports code and calls ResponseWriter.WriteHeader
func (r MetricsResponseWriter) WriteHeader(code int) {
	r.report(code)
	r.ResponseWriter.WriteHeader(code)
}

func (r MetricsResponseWriter) report(code int) {
	if r.wroteHeader == nil || *r.wroteHeader {
		return
	}
	*r.wroteHeader = true

	if r.OnWriteHeader != nil {
		r.OnWriteHeader(code)
	}
}
