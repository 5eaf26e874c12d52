package ratelimit

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/clearsight/auth-service/pkg/util"
)

// Middleware throttles a route group by client IP. A broken limiter is
// logged and the request let through.
func Middleware(limiter *Limiter, scope string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		if err := limiter.Allow(c.Context(), scope, c.IP()); err != nil {
			if errors.Is(err, ErrRateLimited) {
				return apperrors.NewRateLimited("Too many requests. Please try again later.")
			}
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		return c.Next()
	}
}
