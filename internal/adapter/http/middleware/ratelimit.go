package middleware

import (
	"strconv"
	"time"

	"commerce-core/config"
	redisStore "commerce-core/internal/adapter/storage/redis"
	"commerce-core/pkg/apperror"
	"commerce-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimiter creates a client-IP keyed rate-limiting middleware using a
// fixed-window counter in Redis. When the store is unreachable the request
// is allowed through (degraded mode) rather than failing closed.
func RateLimiter(store *redisStore.RateLimitStore, cfg config.RateLimitConfig, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		result, err := store.Allow(c.Request.Context(), c.ClientIP(), cfg.Limit, cfg.Window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}
