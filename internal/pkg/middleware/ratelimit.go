package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/onchainpaykit/paykit/internal/pkg/ratelimit"
)

// RateLimit gates requests through one limiter class, keyed by keyFunc.
// Every gated response carries the X-RateLimit-* headers; denials add
// Retry-After and a 429. Store errors fail open so a cache outage cannot
// take down admission of legitimate traffic.
func RateLimit(limiter *ratelimit.Limiter, keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := limiter.Admit(keyFunc(c))
		if err != nil {
			log.Errorf("rate limit store error: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Set("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))

		if !decision.Allowed {
			c.Set("Retry-After", strconv.Itoa(decision.RetryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "too_many_requests",
				"message":     "Rate limit exceeded. Please try again later.",
				"retry_after": decision.RetryAfter,
			})
		}
		return c.Next()
	}
}

// IPKey keys a limiter by caller IP.
func IPKey(c *fiber.Ctx) string {
	return c.IP()
}

// IPRouteKey keys a limiter by caller IP and route, for the stricter
// class on sensitive endpoints.
func IPRouteKey(c *fiber.Ctx) string {
	return c.IP() + ":" + c.Path()
}
