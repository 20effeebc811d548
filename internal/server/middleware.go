package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/ecclesia/internal/observability/context"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
)

const (
	HeaderParish = "X-Parish-ID"
	HeaderActor  = "X-Actor"
)

// ParishContext requires a well-formed parish header and scopes the request to it.
func ParishContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		parishID := strings.TrimSpace(c.GetHeader(HeaderParish))
		if _, err := uuid.Parse(parishID); err != nil {
			AbortWithError(c, ErrParishRequired)
			return
		}

		ctx := orgcontext.WithParishID(c.Request.Context(), parishID)
		ctx = obscontext.WithParishID(ctx, parishID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ActorContext reads the caller identity. Identity is asserted by the
// fronting gateway; an empty header is rejected.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderActor))
		if actor == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithActor(c.Request.Context(), actor)
		ctx = obscontext.WithActor(ctx, actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func isMutation(method string) bool {
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return false
	default:
		return true
	}
}
