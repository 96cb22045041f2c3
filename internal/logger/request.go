package logger

import (
	"context"

	"github.com/getsentry/sentry-go"
)

type requestIDKey struct{}

// WithRequestID stores the conversion request id in the context.
// When a sentry hub is attached to ctx, the id is also set as a tag on its scope.
func WithRequestID(ctx context.Context, id string) context.Context {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetTag("request_id", id)
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in the context, if any
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
