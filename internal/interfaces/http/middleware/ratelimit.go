package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/offramp/internal/shared/constants"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

// RateLimiter is a Redis fixed-window counter shared by all instances.
// Requests are keyed by authenticated subject, falling back to client IP.
type RateLimiter struct {
	redisClient *redis.Client
	name        string
	limit       int
	window      time.Duration
	logger      logger.Interface
}

func NewRateLimiter(redisClient *redis.Client, name string, limit int, window time.Duration, log logger.Interface) *RateLimiter {
	if window < time.Second {
		window = time.Minute
	}
	return &RateLimiter{
		redisClient: redisClient,
		name:        name,
		limit:       limit,
		window:      window,
		logger:      log,
	}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.redisClient == nil || rl.limit <= 0 {
			c.Next()
			return
		}

		caller := c.GetString(constants.ContextKeySubject)
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}
		windowBucket := time.Now().Unix() / int64(rl.window.Seconds())
		key := fmt.Sprintf("offramp:ratelimit:%s:%s:%d", rl.name, caller, windowBucket)

		ctx := c.Request.Context()
		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Warnw("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rl.redisClient.Expire(ctx, key, rl.window+time.Second)
		}

		if count > int64(rl.limit) {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
