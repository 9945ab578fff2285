package response

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/platform/apierr"
)

func TestErrorPlainText(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Writer{}.Error(rec, apierr.InvalidParameter("reachcode", "12a")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ContentTypeText, rec.Header().Get("Content-Type"))
	assert.Equal(t, "Illegal reachcode '12a'\n\n", rec.Body.String())
}

func TestErrorLegacyStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Writer{LegacyStatus: true}
	require.NoError(t, w.Error(rec, apierr.ServerError("Server error opening feature file")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Server error opening feature file\n\n", rec.Body.String())
}

func TestErrorJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(config.ResponseConfig{ErrorFormat: config.ErrorFormatJSON})
	require.NoError(t, w.Error(rec, apierr.MissingParameter("measure")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"You must specify a 'measure' parameter."}`, rec.Body.String())
}

func TestStreamCopiesVerbatimInChunks(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"type":"Feature"},`), 5000)
	rec := httptest.NewRecorder()
	w := Writer{ChunkBytes: 1024}

	n, err := w.Stream(rec, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestStreamHandlesShortReads(t *testing.T) {
	payload := strings.Repeat("x", 10_000)
	rec := httptest.NewRecorder()

	_, err := Writer{ChunkBytes: 64}.Stream(rec, iotest.HalfReader(iotest.DataErrReader(strings.NewReader(payload))))
	require.NoError(t, err)
	assert.Equal(t, payload, rec.Body.String())
}

func TestStreamEmptyArtifact(t *testing.T) {
	rec := httptest.NewRecorder()
	n, err := Writer{}.Stream(rec, bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"message":"Features contained no data"}`, rec.Body.String())
}

func TestStreamFirstReadFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	_, err := Writer{}.Stream(rec, iotest.ErrReader(errors.New("disk gone")))
	require.ErrorIs(t, err, ErrNothingWritten)
	assert.Zero(t, rec.Body.Len())
}

type failingWriter struct {
	*httptest.ResponseRecorder
	limit int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.ResponseRecorder.Body.Len()+len(p) > f.limit {
		return 0, io.ErrClosedPipe
	}
	return f.ResponseRecorder.Write(p)
}

func TestStreamWriteFault(t *testing.T) {
	rec := &failingWriter{ResponseRecorder: httptest.NewRecorder(), limit: 100}
	n, err := Writer{ChunkBytes: 64}.Stream(rec, strings.NewReader(strings.Repeat("y", 1000)))
	require.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, int64(64), n)
	assert.False(t, errors.Is(err, ErrNothingWritten))
}
