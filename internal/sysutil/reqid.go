package sysutil

import "context"

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying the inbound request id, so
// code below the HTTP layer can forward it or stamp it on events.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}
