package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/guard"
)

// RequireRoles runs the route guard for the request and maps its decision
// onto HTTP. Denials carry the route the client should navigate to, so a
// role denial lands on the caller's own default screen rather than an
// error page.
func RequireRoles(g *guard.Guard, roles ...domain.Role) fiber.Handler {
	required := domain.RoleSet(roles)

	return func(c *fiber.Ctx) error {
		h := HandleFromCtx(c)
		if h == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":    "not authenticated",
				"redirect": "/login",
			})
		}

		result := g.Evaluate(h.Session, h.Resolver, required)
		switch result.Decision {
		case guard.Allow:
			return c.Next()
		case guard.Pending:
			c.Set("Retry-After", "1")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "session still resolving",
			})
		case guard.RedirectLogin:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":    "not authenticated",
				"redirect": "/login",
			})
		case guard.RedirectBlocked:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":    "account is blocked",
				"redirect": "/blocked",
			})
		case guard.RedirectSuspended:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":    "gym is suspended",
				"redirect": "/suspended",
			})
		case guard.RedirectInsufficientRole:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":    "insufficient role",
				"redirect": result.Fallback,
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
			})
		}
	}
}
