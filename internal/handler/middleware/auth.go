package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/session"
)

// Locals keys set by Authenticate for downstream handlers.
const (
	LocalPrincipal = "principal"
	LocalHandle    = "handle"
	LocalToken     = "token"
)

// Authenticate verifies the bearer token with the auth provider and
// attaches the caller's session handle. The X-Installation-Id header keys
// the persisted gym selection; when absent the principal id stands in, so
// the selection still survives across requests from the same account.
func Authenticate(provider authn.Provider, manager *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization header format",
			})
		}
		token := parts[1]

		claims, err := provider.VerifyToken(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		principal := &authn.Principal{ID: claims.UserID, Email: claims.Email}

		installationID := c.Get("X-Installation-Id")
		if installationID == "" {
			installationID = principal.ID.String()
		}
		handle := manager.Attach(c.Context(), principal, installationID)

		c.Locals(LocalPrincipal, principal)
		c.Locals(LocalHandle, handle)
		c.Locals(LocalToken, token)

		return c.Next()
	}
}

// HandleFromCtx returns the session handle stored by Authenticate, or nil
// on an unauthenticated route.
func HandleFromCtx(c *fiber.Ctx) *session.Handle {
	h, _ := c.Locals(LocalHandle).(*session.Handle)
	return h
}

// PrincipalFromCtx returns the authenticated principal, or nil.
func PrincipalFromCtx(c *fiber.Ctx) *authn.Principal {
	p, _ := c.Locals(LocalPrincipal).(*authn.Principal)
	return p
}
