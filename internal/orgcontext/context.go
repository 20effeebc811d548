package orgcontext

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ParishContextKey is the request context key for the active parish ID.
type ParishContextKey struct{}

// ActorContextKey carries the authenticated actor name.
type ActorContextKey struct{}

// WithParishID stores the parish ID in the context.
func WithParishID(ctx context.Context, parishID string) context.Context {
	return context.WithValue(ctx, ParishContextKey{}, strings.TrimSpace(parishID))
}

// ParishIDFromContext returns the parish ID from context, if set and well formed.
func ParishIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(ParishContextKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", false
	}
	return value, true
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, strings.TrimSpace(actor))
}

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(ActorContextKey{}).(string)
	return value
}
