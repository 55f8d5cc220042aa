package journal

import "context"

type traceKey struct{}

// WithTraceID returns ctx carrying id, so entries recorded downstream can be
// tied back to the request that caused them.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the id stored by WithTraceID, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
