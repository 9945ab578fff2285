package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one inbound request across logs and spans.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns request_id/trace_id pairs for logger.With, or nil.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var out []interface{}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	return out
}
