package req

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader records the size of every read
type countingReader struct {
	r     io.Reader
	sizes []int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return c.r.Read(p)
}

// TestReadBodyChunks ensures large bodies are read in bounded chunks and
// reassembled in order
func TestReadBodyChunks(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 10)
	reader := &countingReader{r: bytes.NewReader(payload)}

	body, err := ReadBody(reader, int64(len(payload)), 16)
	require.NoError(t, err)
	assert.Equal(t, payload, body)

	for _, size := range reader.sizes {
		assert.True(t, size <= 16, "read of %d bytes exceeds chunk size", size)
	}
}

// TestReadBodyOneByteReads ensures short reads from the connection are retried
func TestReadBodyOneByteReads(t *testing.T) {
	body, err := ReadBody(iotest.OneByteReader(strings.NewReader("hello")), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
}

// TestReadBodyOnlyDeclaredLength ensures bytes past the declared length are not read
func TestReadBodyOnlyDeclaredLength(t *testing.T) {
	body, err := ReadBody(strings.NewReader("hello world"), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
}

// TestReadBodyTruncated ensures a body shorter than declared fails instead of
// blocking
func TestReadBodyTruncated(t *testing.T) {
	_, err := ReadBody(strings.NewReader("short"), 100, 8)
	require.Error(t, err)
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}

// TestReadBodyEmpty ensures an empty body is fine
func TestReadBodyEmpty(t *testing.T) {
	body, err := ReadBody(strings.NewReader(""), 0, 8)
	require.NoError(t, err)
	assert.Empty(t, body)
}

// TestReadBodyUndeclared ensures a body without a declared length is refused
func TestReadBodyUndeclared(t *testing.T) {
	_, err := ReadBody(strings.NewReader("data"), -1, 8)
	assert.Equal(t, ErrLengthRequired, err)
}
