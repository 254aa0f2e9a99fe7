package req

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// DefaultChunkSize is the largest single read ReadBody performs when no chunk size
// is given. Some platforms stall on socket reads much larger than this.
const DefaultChunkSize = 10 * 1024 * 1024

// ErrLengthRequired is returned by ReadBody when a request did not declare the
// length of its body
var ErrLengthRequired = errors.New("request body length was not declared")

// ReadBody reads exactly length bytes from r. Reads are done in chunks of at most
// chunkSize bytes and concatenated in order. If r ends before length bytes were
// read an error is returned.
func ReadBody(r io.Reader, length int64, chunkSize int) ([]byte, error) {
	if length < 0 {
		return nil, ErrLengthRequired
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	first := int64(chunkSize)
	if length < first {
		first = length
	}

	var body bytes.Buffer
	chunk := make([]byte, first)

	remaining := length
	for remaining > 0 {
		size := int64(len(chunk))
		if remaining < size {
			size = remaining
		}

		n, err := io.ReadFull(r, chunk[:size])
		body.Write(chunk[:n])
		remaining -= int64(n)

		if err != nil {
			return nil, errors.Wrapf(err, "failed to read request body, %d of %d bytes missing",
				remaining, length)
		}
	}

	return body.Bytes(), nil
}
