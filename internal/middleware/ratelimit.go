package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// PlanRateLimit limits planning requests per client IP. Every plan can spend
// routing-service quota, and OVER_QUERY_LIMIT degrades route quality for
// everyone, so the limiter sits in front of the planning endpoints only.
func PlanRateLimit(rdb *redis.Client, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perMinute <= 0 {
			return c.Next()
		}

		ctx := context.Background()
		now := time.Now()
		key := fmt.Sprintf("rl:plan:%s:%s", c.IP(), now.Format("2006-01-02T15:04"))

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Degrade open: a broken limiter must not block route editing.
			log.Printf("rate limiter unavailable: %v", err)
			return c.Next()
		}
		rdb.Expire(ctx, key, 2*time.Minute)

		remaining := int64(perMinute) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(perMinute) {
			c.Set("Retry-After", "60")
			return c.Status(429).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many planning requests",
				"retry_after": 60,
			})
		}

		return c.Next()
	}
}
