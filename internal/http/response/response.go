package response

import (
	"encoding/json"
	"net/http"

	"github.com/yungbote/catchment-service/internal/config"
)

const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"

	MsgNoFeatures = "Features contained no data"

	defaultChunkBytes = 32 << 10
)

type messageBody struct {
	Message string `json:"message"`
}

// Writer renders catchment responses. The zero value writes plain-text
// errors with 4xx/5xx statuses and streams in 32 KiB chunks.
type Writer struct {
	ErrorFormat  string
	LegacyStatus bool
	ChunkBytes   int
}

func NewWriter(cfg config.ResponseConfig) Writer {
	return Writer{
		ErrorFormat:  cfg.ErrorFormat,
		LegacyStatus: cfg.LegacyStatus,
		ChunkBytes:   cfg.ChunkBytes,
	}
}

func (w Writer) chunkBytes() int {
	if w.ChunkBytes <= 0 {
		return defaultChunkBytes
	}
	return w.ChunkBytes
}

// Message writes {"message": msg} with a JSON content type and no trailing
// newline.
func (w Writer) Message(rw http.ResponseWriter, status int, msg string) error {
	b, err := json.Marshal(messageBody{Message: msg})
	if err != nil {
		return err
	}
	rw.Header().Set("Content-Type", ContentTypeJSON)
	rw.WriteHeader(status)
	_, err = rw.Write(b)
	return err
}
