package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/pkg/redis"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

// RateLimit sliding-window limit on a route, backed by Redis. Callers with a
// verified LIFF identity are counted per LINE user so customers behind one
// shop Wi-Fi do not share a budget; anonymous callers are counted per IP.
// A nil client or a Redis error lets the request through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int((window + time.Second - 1) / time.Second))

	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), rateLimitKey(c), limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", retryAfter)
			response.Error(c, http.StatusTooManyRequests, 10004, "too many requests, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateLimitKey buckets by LINE user when verified, otherwise by client IP
func rateLimitKey(c *gin.Context) string {
	subject := "ip:" + c.ClientIP()
	if uid, ok := c.Get(LineUserIDKey); ok {
		if s, _ := uid.(string); s != "" {
			subject = "line:" + s
		}
	}
	return fmt.Sprintf("rate_limit:%s:%s:%s", subject, c.Request.Method, c.FullPath())
}
