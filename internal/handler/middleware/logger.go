package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoggerMiddleware logs one line per completed request. The /verify endpoint
// is logged at debug level only: the proxy hits it on every proxied request
// and it would drown everything else.
func LoggerMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}

		if c.Path() == "/verify" {
			logger.Debug("request", fields...)
		} else {
			logger.Info("request", fields...)
		}

		return err
	}
}
