package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cryptoticket/rn-version-admin/internal/services"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

func bearerToken(c *fiber.Ctx) string {
	authz := c.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

// SessionRequired checks the admin session JWT from Authorization: Bearer.
func SessionRequired(issuer *services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return fiber.ErrUnauthorized
		}
		claims, err := issuer.Parse(token)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals("claims", claims)
		return c.Next()
	}
}

// APITokenRequired checks the bearer API token against the user store. It
// gates bundle uploads from CI rather than admin browsers.
func APITokenRequired(users *store.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get("Authorization")
		if authz == "" {
			return fiber.NewError(fiber.StatusForbidden, "Autorization header is not set")
		}
		token := bearerToken(c)
		user, err := users.FindByAPIToken(c.Context(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "Invalid api token")
		}
		c.Locals("user", user)
		return c.Next()
	}
}
