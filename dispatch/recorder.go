package dispatch

import (
	"bytes"
	"net/http"
)

// recorder captures what gorilla/rpc writes for one call
type recorder struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}}
}

// Header implements http.ResponseWriter
func (r *recorder) Header() http.Header {
	return r.header
}

// WriteHeader implements http.ResponseWriter. Only the first status is kept.
func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

// Write implements http.ResponseWriter
func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}
