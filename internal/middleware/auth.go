package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/foodshare/internal/apperr"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/utils"
)

const identityContextKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uuid.UUID
	Role   models.Role
}

// IdentityHandler is a route handler that requires an authenticated caller.
type IdentityHandler func(c *fiber.Ctx, id Identity) error

// Authenticator resolves bearer tokens into identities.
type Authenticator struct {
	secret string
}

// NewAuthenticator creates an Authenticator verifying tokens signed with secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

// Require wraps h so it only runs with a valid bearer token, receiving the
// resolved identity as a parameter.
func (a *Authenticator) Require(h IdentityHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := a.resolve(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		c.Locals(identityContextKey, id)
		return h(c, id)
	}
}

func (a *Authenticator) resolve(authHeader string) (Identity, error) {
	if authHeader == "" {
		return Identity{}, apperr.Unauthenticated("not authorized to access this route")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return Identity{}, apperr.Unauthenticated("invalid authorization header")
	}

	claims, err := utils.ParseToken(a.secret, strings.TrimSpace(parts[1]))
	if err != nil {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}
	return Identity{UserID: claims.UserID, Role: models.Role(claims.Role)}, nil
}

// CurrentIdentity returns the identity resolved by Require, if any.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(identityContextKey).(Identity)
	return id, ok
}
