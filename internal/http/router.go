package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/catchment-service/internal/http/handlers"
	httpMW "github.com/yungbote/catchment-service/internal/http/middleware"
	"github.com/yungbote/catchment-service/internal/observability"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	ServiceName        string
	CORSAllowedOrigins []string

	// Metrics is served on MetricsPath when non-nil.
	Metrics     *observability.Metrics
	MetricsPath string

	HealthHandler    *httpH.HealthHandler
	CatchmentHandler *httpH.CatchmentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.Recover(cfg.Log))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpMW.CORS(cfg.CORSAllowedOrigins))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Catchment delineation, any method.
	if cfg.CatchmentHandler != nil {
		r.Any("/catchment", cfg.CatchmentHandler.GetCatchment)
		api := r.Group("/api")
		{
			api.Any("/catchment", cfg.CatchmentHandler.GetCatchment)
		}
	}

	return r
}
