package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter throttles requests per client IP through Redis. A limiter
// built without a Redis client lets every request through.
type RateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
	log     *zap.Logger
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit redis_rate.Limit, log *zap.Logger) *RateLimiter {
	rl := &RateLimiter{limit: limit, prefix: prefix, log: log}
	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func PerPeriod(rate int, period time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: rate, Period: period}
}

func (rl *RateLimiter) Handler() drift.HandlerFunc {
	return func(c *drift.Context) {
		if rl == nil || rl.limiter == nil {
			c.Next()
			return
		}

		key := "ratelimit:" + rl.prefix + ":" + ClientIP(c.Request)
		res, err := rl.limiter.Allow(c.Request.Context(), key, rl.limit)
		if err != nil {
			// Redis being down must not lock everyone out of sign-in.
			rl.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		h := c.Response.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			_ = c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClientIP prefers the proxy headers, taking the last X-Forwarded-For hop
// since that one is appended by our own proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
