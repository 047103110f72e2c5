package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/logging"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the banner and liveness endpoints.
type HealthHandler struct {
	appName string
	store   Pinger
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(appName string, store Pinger) *HealthHandler {
	return &HealthHandler{appName: appName, store: store}
}

// Banner identifies the service.
func (h *HealthHandler) Banner(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": h.appName + " API"})
}

// Health reports liveness and store reachability.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("health check: store unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"status":  "degraded",
			"store":   "unreachable",
		})
	}
	return c.JSON(fiber.Map{"success": true, "status": "ok", "store": "ok"})
}
