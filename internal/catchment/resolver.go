package catchment

import (
	"context"
	"fmt"
)

// ResolveRequest is everything the delineation engine needs for one call.
// Dir is the request's workspace; the artifact must be written inside it.
type ResolveRequest struct {
	Dir       string
	BaseName  string
	Reachcode string
	Measure   float64
	Format    string
}

// Resolver delineates the catchment draining to a point on a reach and
// writes it into the workspace. It returns the artifact's file name relative
// to req.Dir. Dataset configuration is bound at construction.
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (string, error)
}

type ResolverFunc func(ctx context.Context, req ResolveRequest) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, req ResolveRequest) (string, error) {
	return f(ctx, req)
}

// PanicError carries a panic raised inside a resolver.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("resolver panic: %v", e.Value)
}
