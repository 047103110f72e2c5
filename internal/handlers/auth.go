package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/foodshare/internal/middleware"
	"github.com/example/foodshare/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sess, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   sess.Token,
		"user":    sess.User,
	})
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	sess, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   sess.Token,
		"user":    sess.User,
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *fiber.Ctx, id middleware.Identity) error {
	user, err := h.auth.User(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}
