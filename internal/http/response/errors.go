package response

import (
	"net/http"

	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/platform/apierr"
)

// Error reports e to the client: a plain-text line followed by a blank line,
// or {"message": ...} when the writer is configured for JSON errors.
func (w Writer) Error(rw http.ResponseWriter, e *apierr.Error) error {
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	if e != nil {
		if e.Status != 0 {
			status = e.Status
		}
		if s := e.Error(); s != "" {
			msg = s
		}
	}
	if w.LegacyStatus {
		status = http.StatusOK
	}

	if w.ErrorFormat == config.ErrorFormatJSON {
		return w.Message(rw, status, msg)
	}
	rw.Header().Set("Content-Type", ContentTypeText)
	rw.WriteHeader(status)
	_, err := rw.Write([]byte(msg + "\n\n"))
	return err
}
