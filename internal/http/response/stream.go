package response

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNothingWritten marks a stream that failed before any byte reached the
// client, so the caller can still send an error response.
var ErrNothingWritten = errors.New("response not started")

// Stream copies the artifact in r to rw verbatim in bounded chunks. An
// artifact whose first read yields no data is answered with
// {"message":"Features contained no data"} instead of an empty body.
//
// A read failure before the first chunk is returned wrapping
// ErrNothingWritten. Later failures leave a truncated response.
func (w Writer) Stream(rw http.ResponseWriter, r io.Reader) (int64, error) {
	buf := make([]byte, w.chunkBytes())

	n, err := readSome(r, buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: read artifact: %v", ErrNothingWritten, err)
		}
		return 0, w.Message(rw, http.StatusOK, MsgNoFeatures)
	}

	rw.Header().Set("Content-Type", ContentTypeJSON)
	rw.WriteHeader(http.StatusOK)

	var written int64
	for {
		if n > 0 {
			m, werr := rw.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, fmt.Errorf("write artifact: %w", werr)
			}
			if m < n {
				return written, fmt.Errorf("write artifact: %w", io.ErrShortWrite)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("read artifact: %w", err)
		}
		n, err = readSome(r, buf)
	}
}

// readSome retries reads that return neither data nor an error.
func readSome(r io.Reader, buf []byte) (int, error) {
	for i := 0; i < 100; i++ {
		n, err := r.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, io.ErrNoProgress
}
