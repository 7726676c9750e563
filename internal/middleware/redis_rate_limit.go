package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/campuslink/backend/internal/metrics"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WindowCounter counts hits in a fixed window. *cache.RedisClient
// implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimitMiddleware limits each caller to maxRequests per window
// across every instance. Callers are keyed by user when authenticated and
// by IP otherwise. With no counter configured, or when Redis errors, the
// request goes through: the limiter protects capacity, it is not an
// access control.
func RedisRateLimitMiddleware(counter WindowCounter, scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		caller := c.GetString("user_id")
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}
		bucket := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("rate_limit:%s:%s:%d", scope, caller, bucket)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		count, err := counter.IncrWindow(ctx, key, window)
		if err != nil {
			logger.WarnWithFields("Rate limit check failed, allowing request", err, zap.String("scope", scope))
			c.Next()
			return
		}

		if count > int64(maxRequests) {
			metrics.Get().RateLimitExceededTotal.WithLabelValues(scope).Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			util.RespondWithAPIError(c, errors.RateLimited("rate limit exceeded"))
			return
		}

		c.Next()
	}
}
