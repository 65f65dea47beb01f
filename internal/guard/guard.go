// Package guard turns session + tenant state into an admission decision
// for a requested screen. No errors are thrown: a denial is always a
// navigation decision.
package guard

import (
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/session"
	"github.com/fitclub/club-service/internal/tenant"
)

type Decision int

const (
	Pending Decision = iota
	Allow
	RedirectLogin
	RedirectBlocked
	RedirectSuspended
	RedirectInsufficientRole
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectBlocked:
		return "redirect-blocked"
	case RedirectSuspended:
		return "redirect-suspended"
	case RedirectInsufficientRole:
		return "redirect-insufficient-role"
	default:
		return "unknown"
	}
}

// Result is a decision plus, for role denials, the landing route to fall
// back to.
type Result struct {
	Decision Decision
	Fallback string
}

// Guard evaluates admission. OnBlocked, when set, is invoked as a side
// effect whenever a blocked principal is observed, so the session can be
// force-logged-out regardless of how it became blocked.
type Guard struct {
	OnBlocked func(*session.Session)
}

// Evaluate decides admission for one request. Nothing is cached, so a
// suspension flip or a block flip arriving on either event stream takes
// effect on the next evaluation.
func (g *Guard) Evaluate(sess *session.Session, resolver *tenant.Resolver, requiredRoles domain.RoleSet) Result {
	if sess == nil || sess.Principal() == nil {
		return Result{Decision: RedirectLogin}
	}

	if sess.Loading() || resolver.Loading() {
		return Result{Decision: Pending}
	}

	if sess.IsBlocked() {
		if g.OnBlocked != nil {
			g.OnBlocked(sess)
		}
		return Result{Decision: RedirectBlocked}
	}

	if resolver.IsSuspended() {
		return Result{Decision: RedirectSuspended}
	}

	if len(requiredRoles) > 0 {
		effective := sess.EffectiveRoles()
		if !satisfies(effective, requiredRoles) {
			return Result{
				Decision: RedirectInsufficientRole,
				Fallback: DefaultRoute(effective),
			}
		}
	}

	return Result{Decision: Allow}
}

// DefaultRoute is the landing route for a role set, used as the fallback
// after an insufficient-role denial.
func DefaultRoute(roles domain.RoleSet) string {
	switch roles.Highest() {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
		return "/admin"
	case domain.RoleInstructor:
		return "/schedule"
	default:
		return "/home"
	}
}

// satisfies reports whether the effective roles meet at least one of the
// required ones, where a more dominant role always meets a lesser
// requirement.
func satisfies(effective, required domain.RoleSet) bool {
	for _, r := range required {
		if effective.AtLeast(r) {
			return true
		}
	}
	return false
}
