// Package middleware contains HTTP middlewares for delivery.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const gitlabEventHeader = "X-Gitlab-Event"

// RequestLogger logs each request with its status and duration. Server
// errors are logged at error level, /healthz is skipped.
func RequestLogger(log *zap.SugaredLogger) fiber.Handler {
	log = log.Named("http")
	return func(c *fiber.Ctx) error {
		if c.Path() == "/healthz" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		dur := time.Since(start)

		reqID, _ := c.Locals("requestid").(string)
		if reqID == "" {
			reqID = c.Get(fiber.HeaderXRequestID)
		}
		status := c.Response().StatusCode()
		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", float64(dur.Microseconds()) / 1000.0,
			"request_id", reqID,
		}
		if event := c.Get(gitlabEventHeader); event != "" {
			fields = append(fields, "gitlab_event", event)
		}

		if err != nil || status >= fiber.StatusInternalServerError {
			log.Errorw("http", append(fields, "error", err)...)
			return err
		}
		log.Infow("http", fields...)
		return nil
	}
}
