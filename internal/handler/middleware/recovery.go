package middleware

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a 500 instead of tearing
// down the process.
func RecoveryMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.ByteString("stack", debug.Stack()),
				)

				if err := c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error"); err != nil {
					logger.Error("failed to send panic response", zap.Error(err))
				}
			}
		}()

		return c.Next()
	}
}
