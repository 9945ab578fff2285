package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/catchment-service/internal/catchment"
	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/delineation"
	httpapi "github.com/yungbote/catchment-service/internal/http"
	httpH "github.com/yungbote/catchment-service/internal/http/handlers"
	"github.com/yungbote/catchment-service/internal/http/response"
	"github.com/yungbote/catchment-service/internal/observability"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

type App struct {
	Log        *logger.Logger
	Config     *config.Config
	Workspaces *catchment.Workspaces

	server         *http.Server
	shutdownTraces func(context.Context) error
}

type readinessChecker interface {
	AssertReady(ctx context.Context) error
}

// New wires the service from a loaded configuration. It fails when the
// delineation tool or dataset is unusable so that a misconfigured process
// never starts serving.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithLogger(ctx, cfg, log)
}

func NewWithLogger(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	shutdownTraces := observability.InitOTel(ctx, log, cfg.Tracing, cfg.Env, Version)
	defer func() {
		if err != nil {
			_ = shutdownTraces(context.Background())
		}
	}()

	resolver, err := delineation.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if rc, ok := resolver.(readinessChecker); ok {
		if err := rc.AssertReady(ctx); err != nil {
			return nil, fmt.Errorf("delineation resolver not ready: %w", err)
		}
	}

	workspaces, err := catchment.NewWorkspaces(log, cfg.Work.Root, cfg.Work.Prefix)
	if err != nil {
		return nil, err
	}
	if _, err := workspaces.SweepStale(cfg.Work.StaleAfter.Duration); err != nil {
		log.Warn("sweep stale workspaces failed", "error", err)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		metrics.TrackWorkspaces(workspaces.Live)
	}

	pipeline := catchment.NewPipeline(log, resolver, workspaces, cfg.Resolver.OutputName, cfg.Resolver.OutputFormat)
	if metrics != nil {
		pipeline.OnResolve(metrics.ObserveResolve)
	}

	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	engine := httpapi.NewRouter(httpapi.RouterConfig{
		Log:                log,
		ServiceName:        serviceName,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Metrics:            metrics,
		MetricsPath:        cfg.Metrics.Path,
		HealthHandler:      httpH.NewHealthHandler(workspaces.Root()),
		CatchmentHandler:   httpH.NewCatchmentHandler(log, pipeline, response.NewWriter(cfg.Response)).WithMetrics(metrics),
	})

	return &App{
		Log:            log,
		Config:         cfg,
		Workspaces:     workspaces,
		server:         httpapi.NewServer(cfg.HTTP, engine),
		shutdownTraces: shutdownTraces,
	}, nil
}

func (a *App) Handler() http.Handler { return a.server.Handler }

// Run listens on the configured address and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests
// and removes any workspace they left behind.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.Log.Info("catchment service listening", "addr", ln.Addr().String(), "version", Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if err := a.Workspaces.CloseAll(); err != nil {
		a.Log.Error("remove workspaces at shutdown failed", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTraces(ctx); err != nil {
		a.Log.Warn("otel shutdown failed", "error", err)
	}
	a.Log.Sync()
}
