package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodshare/internal/validation"
)

func paramID(c *fiber.Ctx, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, validation.Errorf("id", "invalid %s id", resource)
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

// queryFloat reads a float query parameter; absent optional values are 0.
func queryFloat(c *fiber.Ctx, key string, required bool) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		if required {
			return 0, validation.Errorf(key, "%s is required", key)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, validation.Errorf(key, "%s must be a number", key)
	}
	return v, nil
}
