package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseAcceptEncoding ensures q-values are read like browsers send them
func TestParseAcceptEncoding(t *testing.T) {
	assert.Equal(t, map[string]float64{}, ParseAcceptEncoding(""))
	assert.Equal(t, map[string]float64{"gzip": 1, "deflate": 1},
		ParseAcceptEncoding("gzip, deflate"))
	assert.Equal(t, map[string]float64{"gzip": 0.5, "identity": 0, "br": 1},
		ParseAcceptEncoding("GZIP;q=0.5, identity; q=0 ,br"))
	assert.Equal(t, map[string]float64{"deflate": 1},
		ParseAcceptEncoding("gzip;q=abc, deflate, bad token"))
}

// TestAcceptsGzip ensures gzip needs a nonzero preference
func TestAcceptsGzip(t *testing.T) {
	assert.True(t, AcceptsGzip("gzip"))
	assert.True(t, AcceptsGzip("deflate, gzip;q=0.1"))
	assert.False(t, AcceptsGzip("gzip;q=0"))
	assert.False(t, AcceptsGzip("deflate"))
	assert.False(t, AcceptsGzip(""))
}

// TestRoundTrip ensures decoding an encoded payload reproduces it exactly
func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("<value><string>round trip</string></value>"), 500)

	encoded, err := Encode(payload)
	require.NoError(t, err)
	assert.True(t, len(encoded) < len(payload))

	decoded, err := Decode(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

// TestDecodeLimit ensures oversized output is refused
func TestDecodeLimit(t *testing.T) {
	encoded, err := Encode(bytes.Repeat([]byte("a"), 1024))
	require.NoError(t, err)

	_, err = Decode(encoded, 1023)
	assert.Equal(t, ErrDecodeLimit, err)

	decoded, err := Decode(encoded, 1024)
	require.NoError(t, err)
	assert.Len(t, decoded, 1024)
}

// TestDecodeCorrupt ensures corrupt data fails
func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte("definitely not gzip"), 0)
	assert.Error(t, err)

	encoded, err := Encode([]byte("truncated stream"))
	require.NoError(t, err)
	_, err = Decode(encoded[:len(encoded)-4], 0)
	assert.Error(t, err)
}
