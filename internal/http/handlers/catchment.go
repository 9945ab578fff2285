package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catchment-service/internal/catchment"
	"github.com/yungbote/catchment-service/internal/http/response"
	"github.com/yungbote/catchment-service/internal/observability"
	"github.com/yungbote/catchment-service/internal/platform/apierr"
	"github.com/yungbote/catchment-service/internal/platform/ctxutil"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

const maxFormMemory = 1 << 20

type CatchmentHandler struct {
	log      *logger.Logger
	pipeline *catchment.Pipeline
	out      response.Writer
	metrics  *observability.Metrics
}

func NewCatchmentHandler(log *logger.Logger, pipeline *catchment.Pipeline, out response.Writer) *CatchmentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CatchmentHandler{
		log:      log.With("handler", "CatchmentHandler"),
		pipeline: pipeline,
		out:      out,
	}
}

// WithMetrics counts every request by outcome on m.
func (h *CatchmentHandler) WithMetrics(m *observability.Metrics) *CatchmentHandler {
	h.metrics = m
	return h
}

// GetCatchment answers any method. reachcode and measure are read from the
// query string and from url-encoded or multipart form bodies.
func (h *CatchmentHandler) GetCatchment(c *gin.Context) {
	req := c.Request
	if err := req.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.fail(c, apierr.New(http.StatusBadRequest, "invalid_request", err))
		return
	}

	params, err := catchment.ParseParams(req.Form)
	if err != nil {
		h.fail(c, apierr.As(err, catchment.MsgResolveFailed))
		return
	}

	var streamed int64
	err = h.pipeline.Run(req.Context(), params, func(f *os.File) error {
		n, err := h.out.Stream(c.Writer, f)
		streamed = n
		return err
	})
	if err == nil {
		if streamed == 0 {
			h.metrics.IncOutcome(observability.OutcomeNoFeatures)
		} else {
			h.metrics.IncOutcome(observability.OutcomeOK)
		}
		return
	}

	log := h.log.With(ctxutil.LogFields(req.Context())...)
	var ae *apierr.Error
	switch {
	case errors.As(err, &ae):
		h.fail(c, ae)
	case errors.Is(err, response.ErrNothingWritten) && !c.Writer.Written():
		log.Error("read feature file failed", "error", err)
		h.fail(c, apierr.ServerError(catchment.MsgArtifactUnread))
	default:
		// Headers and part of the body are already out; all that is left is
		// to cut the response short.
		log.Error("streaming feature file failed", "error", err, "bytes", c.Writer.Size())
		h.metrics.IncOutcome(observability.OutcomeStreamAborted)
		_ = c.Error(err)
		c.Abort()
	}
}

func (h *CatchmentHandler) fail(c *gin.Context, e *apierr.Error) {
	h.metrics.IncOutcome(outcomeOf(e))
	_ = c.Error(e)
	if err := h.out.Error(c.Writer, e); err != nil {
		h.log.Warn("write error response failed", "error", err)
	}
	c.Abort()
}

func outcomeOf(e *apierr.Error) string {
	switch e.Code {
	case apierr.CodeMissingParameter:
		return observability.OutcomeMissingParameter
	case apierr.CodeServerError:
	default:
		return observability.OutcomeInvalidParameter
	}
	switch e.Error() {
	case catchment.MsgWorkspaceFailed:
		return observability.OutcomeWorkspaceFailed
	case catchment.MsgArtifactUnread:
		return observability.OutcomeArtifactUnreadable
	default:
		return observability.OutcomeResolveFailed
	}
}
