package catchment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/catchment-service/internal/platform/apierr"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

const (
	MsgResolveFailed   = "Server error delineating catchment"
	MsgArtifactUnread  = "Server error opening feature file"
	MsgWorkspaceFailed = "Server error creating workspace"
)

// Pipeline runs one delineation inside a scoped workspace.
type Pipeline struct {
	log        *logger.Logger
	resolver   Resolver
	workspaces *Workspaces
	baseName   string
	format     string
	tracer     trace.Tracer
	onResolve  func(status string, dur time.Duration)
}

func NewPipeline(log *logger.Logger, resolver Resolver, workspaces *Workspaces, baseName, format string) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		log:        log.With("service", "CatchmentPipeline"),
		resolver:   resolver,
		workspaces: workspaces,
		baseName:   baseName,
		format:     format,
		tracer:     otel.Tracer("github.com/yungbote/catchment-service/internal/catchment"),
	}
}

// Run acquires a workspace, asks the resolver for the catchment, opens the
// artifact and passes it to consume. The workspace is removed before Run
// returns on every path, including a panic in consume.
//
// Failures before consume is called are *apierr.Error values ready for the
// client. An error from consume is returned unchanged.
func (p *Pipeline) Run(ctx context.Context, params Params, consume func(f *os.File) error) error {
	ctx, span := p.tracer.Start(ctx, "catchment.Run", trace.WithAttributes(
		attribute.String("catchment.reachcode", params.Reachcode),
		attribute.Float64("catchment.measure", params.Measure),
	))
	defer span.End()

	ws, err := p.workspaces.Acquire(ctx)
	if err != nil {
		p.log.Error("acquire workspace failed", "error", err)
		recordErr(span, err)
		return apierr.ServerError(MsgWorkspaceFailed)
	}
	defer ws.Close()

	log := p.log.With("workspace", ws.Dir(), "reachcode", params.Reachcode, "measure", params.Measure)

	name, err := p.resolve(ctx, ResolveRequest{
		Dir:       ws.Dir(),
		BaseName:  p.baseName,
		Reachcode: params.Reachcode,
		Measure:   params.Measure,
		Format:    p.format,
	})
	if err != nil {
		var pe *PanicError
		if errors.As(err, &pe) {
			log.Error("resolver panicked", "panic", pe.Value, "stack", string(pe.Stack))
		} else {
			log.Error("resolver failed", "error", err)
		}
		recordErr(span, err)
		return apierr.ServerError(MsgResolveFailed)
	}

	f, err := OpenArtifact(ws.Dir(), name)
	if err != nil {
		log.Warn("feature file unreadable", "artifact", name, "error", err)
		recordErr(span, err)
		return apierr.ServerError(MsgArtifactUnread)
	}
	defer f.Close()

	span.SetAttributes(attribute.String("catchment.artifact", filepath.Base(f.Name())))
	if err := consume(f); err != nil {
		recordErr(span, err)
		return err
	}
	return nil
}

// OnResolve registers fn to be called after every resolver invocation with
// "ok", "error" or "panic" and the time the resolver took.
func (p *Pipeline) OnResolve(fn func(status string, dur time.Duration)) *Pipeline {
	p.onResolve = fn
	return p
}

func (p *Pipeline) resolve(ctx context.Context, req ResolveRequest) (name string, err error) {
	ctx, span := p.tracer.Start(ctx, "catchment.Resolve")
	defer span.End()

	start := time.Now()
	status := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			status = "panic"
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		} else if err != nil {
			status = "error"
		}
		if p.onResolve != nil {
			p.onResolve(status, time.Since(start))
		}
	}()
	return p.resolver.Resolve(ctx, req)
}

// OpenArtifact opens the resolver's output for reading. The name is not
// trusted: it must name a regular file inside dir.
func OpenArtifact(dir, name string) (*os.File, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("resolver returned no artifact name")
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact %q is outside the workspace", name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("artifact %q is not a regular file", name)
	}
	return f, nil
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
