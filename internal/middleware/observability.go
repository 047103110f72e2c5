package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/observability"
)

// Observability records request metrics and writes one access log line per
// request. Handler errors are rendered here so the logged status is final.
func Observability() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		route := c.Route().Path
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.HTTPRequestsTotal.WithLabelValues(c.Method(), route, statusLabel).Inc()
		observability.HTTPRequestDuration.WithLabelValues(c.Method(), route, statusLabel).Observe(elapsed.Seconds())

		event := logging.Info()
		if status >= fiber.StatusInternalServerError {
			event = logging.Error()
		}
		event = event.
			Str("method", c.Method()).
			Str("route", route).
			Str("path", c.Path()).
			Int("status", status).
			Int64("duration_ms", elapsed.Milliseconds()).
			Str("remote_addr", c.IP())
		if rid := c.GetRespHeader(fiber.HeaderXRequestID); rid != "" {
			event = event.Str("request_id", rid)
		}
		if id, ok := CurrentIdentity(c); ok {
			event = event.Str("user_id", id.UserID.String()).Str("role", string(id.Role))
		}
		event.Msg("http_request")
		return nil
	}
}
