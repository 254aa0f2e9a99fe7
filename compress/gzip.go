// Package compress gzip encodes responses and decodes request bodies.
package compress

import (
	"bytes"
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

// Gzip is the content coding name of gzip
const Gzip = "gzip"

// DefaultMaxDecodeSize is the largest decompressed request body Decode accepts
// when no limit is given
const DefaultMaxDecodeSize = 20 * 1024 * 1024

// ErrDecodeLimit is returned by Decode when the decompressed data is too large
var ErrDecodeLimit = errors.New("max gzipped payload length exceeded")

// ParseAcceptEncoding returns the q-value of every coding listed in an
// Accept-Encoding header. Codings without a q parameter have a q-value of 1.
// Coding names are lower cased. Malformed entries are skipped.
func ParseAcceptEncoding(header string) map[string]float64 {
	codings := map[string]float64{}

	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")

		name := strings.ToLower(strings.TrimSpace(parts[0]))
		if !isToken(name) {
			continue
		}

		q := 1.0
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if !strings.HasPrefix(p, "q=") {
				continue
			}
			parsed, err := strconv.ParseFloat(p[2:], 64)
			if err != nil {
				q = -1
				break
			}
			q = parsed
		}
		if q < 0 {
			continue
		}

		codings[name] = q
	}

	return codings
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !httpguts.IsTokenRune(r) {
			return false
		}
	}
	return true
}

// AcceptsGzip reports whether an Accept-Encoding header gives gzip a nonzero
// q-value
func AcceptsGzip(header string) bool {
	return ParseAcceptEncoding(header)[Gzip] > 0
}

// Encode gzip compresses data
func Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "failed to gzip data")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish gzip stream")
	}

	return buf.Bytes(), nil
}

// Decode decompresses gzip data. Output larger than maxSize bytes fails with
// ErrDecodeLimit. A maxSize of zero or less uses DefaultMaxDecodeSize.
func Decode(data []byte, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxDecodeSize
	}

	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "invalid gzip data")
	}
	defer r.Close()

	decoded, err := ioutil.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "invalid gzip data")
	}
	if int64(len(decoded)) > maxSize {
		return nil, ErrDecodeLimit
	}

	return decoded, nil
}
