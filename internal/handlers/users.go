package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/services"
)

// UserHandler serves public user profiles.
type UserHandler struct {
	auth *services.AuthService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(auth *services.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// GetUser returns a user's public profile.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "user")
	if err != nil {
		return err
	}

	user, err := h.auth.User(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}
