// Package session holds the Identity Session: the single source of truth
// for who is calling and what they can do. A session tracks the live
// profile through the event bus and carries the superadmin-only role
// simulation overlay.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
)

var (
	ErrNotSuperAdmin   = errors.New("role simulation requires the superadmin role")
	ErrInvalidRole     = errors.New("unknown role")
	ErrNoActiveSession = errors.New("no active session")
)

type Session struct {
	mu sync.Mutex

	users repository.UserRepository
	bus   *events.Bus

	principal *authn.Principal
	profile   *domain.User
	loading   bool

	simulating    bool
	simulatedRole domain.Role

	unsubscribe func()
}

func New(users repository.UserRepository, bus *events.Bus) *Session {
	return &Session{users: users, bus: bus}
}

// OnAuthChange reacts to the principal appearing or disappearing. All state
// belonging to a previous principal is discarded before anything about the
// new one is loaded, so the session never pairs a principal with a stale
// profile.
func (s *Session) OnAuthChange(ctx context.Context, principal *authn.Principal) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.principal = principal
	s.profile = nil
	s.simulating = false
	s.simulatedRole = ""
	s.loading = principal != nil
	s.mu.Unlock()

	if principal == nil {
		return
	}

	s.reloadProfile(ctx, principal)

	id := principal.ID
	cancel := s.bus.Subscribe(func(e events.Event) bool {
		return e.IsProfile() && e.ID == id
	}, func(e events.Event) {
		s.handleProfileEvent(e)
	})

	s.mu.Lock()
	// The principal may have switched again while we were loading; a
	// subscription for the old one must not survive.
	if s.principal == nil || s.principal.ID != id {
		s.mu.Unlock()
		cancel()
		return
	}
	s.unsubscribe = cancel
	s.mu.Unlock()
}

func (s *Session) reloadProfile(ctx context.Context, principal *authn.Principal) {
	profile, err := s.users.GetByID(ctx, principal.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[SESSION] Profile load failed for %s: %v", principal.ID, err)
		}
		// Auth record exists without a profile: synthesize a placeholder
		// so the caller can be routed to re-registration.
		profile = domain.PlaceholderUser(principal.ID, principal.Email)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil || s.principal.ID != principal.ID {
		return
	}
	s.profile = profile
	s.loading = false
}

func (s *Session) handleProfileEvent(e events.Event) {
	s.mu.Lock()
	principal := s.principal
	s.mu.Unlock()
	if principal == nil || principal.ID != e.ID {
		return
	}

	if e.Kind == events.KindProfileDeleted {
		s.mu.Lock()
		if s.principal != nil && s.principal.ID == e.ID {
			s.profile = domain.PlaceholderUser(principal.ID, principal.Email)
		}
		s.mu.Unlock()
		return
	}

	s.reloadProfile(context.Background(), principal)
}

// Close detaches the session from the event bus.
func (s *Session) Close() {
	s.OnAuthChange(context.Background(), nil)
}

func (s *Session) Principal() *authn.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

func (s *Session) Profile() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Loading reports whether the profile for the current principal is still
// being resolved. The route guard renders Pending in that window instead of
// guessing.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// realRoles are the persisted roles, untouched by simulation.
func (s *Session) realRoles() domain.RoleSet {
	if s.profile == nil {
		return nil
	}
	return s.profile.Roles
}

// EffectiveRoles returns the simulated role (normalized) while a simulation
// is active, the persisted roles otherwise.
func (s *Session) EffectiveRoles() domain.RoleSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulating {
		return domain.NormalizeRoles([]domain.Role{s.simulatedRole}, "")
	}
	return s.realRoles()
}

// StartRoleSimulation narrows the session's effective permissions to the
// given role. Only a real superadmin may simulate; the overlay is volatile
// and cleared on logout.
func (s *Session) StartRoleSimulation(role domain.Role) error {
	if !role.IsKnown() {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.realRoles().Has(domain.RoleSuperAdmin) {
		return ErrNotSuperAdmin
	}
	s.simulating = true
	s.simulatedRole = role
	return nil
}

func (s *Session) StopRoleSimulation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulating = false
	s.simulatedRole = ""
}

func (s *Session) IsSimulating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulating
}

// IsSysadmin reports superadmin status. It is always false while a
// simulation is active, even though the persisted roles still hold
// superadmin: simulation must visibly drop superadmin capabilities.
func (s *Session) IsSysadmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.simulating {
		return false
	}
	return s.realRoles().Has(domain.RoleSuperAdmin)
}

func (s *Session) IsAdmin() bool {
	return s.EffectiveRoles().IsAdmin()
}

func (s *Session) IsInstructor() bool {
	return s.EffectiveRoles().IsInstructor()
}

func (s *Session) HasRole(role domain.Role) bool {
	return s.EffectiveRoles().Has(role)
}

// IsBlocked reads the live profile flag; a realtime block takes effect on
// the next guard evaluation without a new login.
func (s *Session) IsBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile != nil && s.profile.IsBlocked
}

// NeedsReregistration reports whether the session runs on a synthesized
// placeholder profile.
func (s *Session) NeedsReregistration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile != nil && s.profile.NeedsReregistration
}

// GymID returns the profile's gym affiliation, if any.
func (s *Session) GymID() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	return s.profile.GymID
}
