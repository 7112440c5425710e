package logger

import "context"

// requestIDKey is unexported so no other package can collide with it.
type requestIDKey struct{}

// WithRequestID stores a request ID on the context. The ID travels with the
// request through handlers and out over NATS message headers.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID on the context, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
