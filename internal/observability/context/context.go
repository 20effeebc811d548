package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type parishIDKey struct{}
type actorKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithParishID(ctx context.Context, parishID string) context.Context {
	return context.WithValue(ctx, parishIDKey{}, strings.TrimSpace(parishID))
}

func ParishIDFromContext(ctx context.Context) string {
	return stringValue(ctx, parishIDKey{})
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actor))
}

func ActorFromContext(ctx context.Context) string {
	return stringValue(ctx, actorKey{})
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
