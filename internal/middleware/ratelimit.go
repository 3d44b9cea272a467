package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/rpd-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitWindow is the length of one counting window.
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the number of requests allowed per window.
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for the per-IP counters.
	RateLimitKeyPrefix = "ratelimit:"
)

// RedisRateLimit counts requests per client IP in a fixed Redis window and
// answers 429 once max is exceeded. When Redis is unreachable requests
// are let through.
func RedisRateLimit(rdb *redis.Client, max int, window time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := RateLimitKeyPrefix + clientip.RealClientIP(r)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.WarnContext(ctx, "rate limit counter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				// First request of the window starts its clock.
				rdb.Expire(ctx, key, window)
			}

			count := int(n)
			remaining := max - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > max {
				ttl, err := rdb.TTL(ctx, key).Result()
				if err != nil || ttl < 0 {
					ttl = window
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(ttl.Seconds()))))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
