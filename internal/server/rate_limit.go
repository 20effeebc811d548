package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ecclesia/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/smallbiznis/ecclesia/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonParishRate = "parish-rate"

// MutationLimiter is the per-parish throttle for writes.
type MutationLimiter interface {
	Enabled() bool
	AllowParish(ctx context.Context, parishID string) (*ratelimit.RateLimitResult, error)
}

// MutationRateLimit throttles non-read requests per parish. Reads pass untouched.
func (s *Server) MutationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() || !isMutation(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		parishID, ok := orgcontext.ParishIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrParishRequired)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		res, err := s.limiter.AllowParish(ctx, parishID)
		if err != nil {
			logger.FromContext(ctx).Warn("parish rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if res != nil && res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
		}
		if res == nil || !res.Allowed {
			denyRateLimit(c, endpoint, parishID, res, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, parishID, s.obsMetrics)
		c.Next()
	}
}

func denyRateLimit(c *gin.Context, endpoint, parishID string, res *ratelimit.RateLimitResult, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("parish rate limit exceeded",
		zap.String("reason", rateLimitReasonParishRate),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, parishID, rateLimitReasonParishRate, metrics)

	retryAfter := 1
	if res != nil && res.RetryAfter.Seconds() > 1 {
		retryAfter = int(res.RetryAfter.Seconds() + 0.999)
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", rateLimitReasonParishRate)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint, parishID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, parishID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, parishID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, parishID, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
