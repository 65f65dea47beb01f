package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
	"github.com/fitclub/club-service/pkg/email"
)

var ErrUserNotFound = errors.New("user not found")

const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const tempPasswordLength = 12

// UserService covers administrative user operations: role changes,
// blocking, gym reassignment, and admin-issued password resets. Every
// authorization check runs before any write.
type UserService struct {
	users    repository.UserRepository
	provider authn.Provider
	mail     email.Service
	bus      *events.Bus
	now      func() time.Time
}

func NewUserService(
	users repository.UserRepository,
	provider authn.Provider,
	mail email.Service,
	bus *events.Bus,
) *UserService {
	return &UserService{
		users:    users,
		provider: provider,
		mail:     mail,
		bus:      bus,
		now:      time.Now,
	}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.getUser(ctx, userID)
}

// ListByGym returns a gym's members. Admins are scoped to their own gym;
// superadmins may list any.
func (s *UserService) ListByGym(ctx context.Context, actor *domain.User, gymID uuid.UUID, limit, offset int) ([]*domain.User, int, error) {
	if actor == nil || !actor.Roles.CanManageUsers() {
		return nil, 0, ErrPermissionDenied
	}
	if !actor.Roles.Has(domain.RoleSuperAdmin) {
		if actor.GymID == nil || *actor.GymID != gymID {
			return nil, 0, ErrGymMismatch
		}
	}
	return s.users.ListByGym(ctx, gymID, limit, offset)
}

// List searches across all users. Superadmin only.
func (s *UserService) List(ctx context.Context, actor *domain.User, search string, limit, offset int) ([]*domain.User, int, error) {
	if actor == nil || !actor.Roles.Has(domain.RoleSuperAdmin) {
		return nil, 0, ErrPermissionDenied
	}
	return s.users.List(ctx, limit, offset, search)
}

// GrantRole adds a role to a user. Granting superadmin requires the
// actor to be a superadmin; the check happens before any write and a
// failure leaves the target untouched.
func (s *UserService) GrantRole(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	if actor == nil || !actor.Roles.CanAssignRole(role) {
		return nil, ErrPermissionDenied
	}
	if !role.IsKnown() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	target, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.Roles.Has(role) {
		return target, nil
	}

	target.Roles = domain.NormalizeRoles(append(target.Roles, role), "")
	return s.saveProfile(ctx, target)
}

// RevokeRole removes a role. The member role cannot be removed; it is
// the floor of every role set.
func (s *UserService) RevokeRole(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	if actor == nil || !actor.Roles.CanRemoveRole(role) {
		return nil, ErrPermissionDenied
	}
	if role == domain.RoleMember {
		return nil, fmt.Errorf("the member role cannot be removed")
	}

	target, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !target.Roles.Has(role) {
		return target, nil
	}

	kept := make(domain.RoleSet, 0, len(target.Roles))
	for _, r := range target.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	target.Roles = domain.NormalizeRoles(kept, "")
	return s.saveProfile(ctx, target)
}

// SetBlocked blocks or unblocks a user. Blocking also revokes every
// active provider session so the lockout takes effect immediately, not
// at the next token expiry.
func (s *UserService) SetBlocked(ctx context.Context, actor *domain.User, userID uuid.UUID, blocked bool) (*domain.User, error) {
	if actor == nil || !actor.Roles.CanBlockUsers() {
		return nil, ErrPermissionDenied
	}
	if actor.ID == userID {
		return nil, fmt.Errorf("cannot block yourself")
	}

	target, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.IsBlocked == blocked {
		return target, nil
	}

	target.IsBlocked = blocked
	updated, err := s.saveProfile(ctx, target)
	if err != nil {
		return nil, err
	}

	if blocked {
		if err := s.provider.RevokeSessions(ctx, userID); err != nil {
			log.Printf("[USER] Failed to revoke sessions for blocked user %s: %v", userID, err)
		}
	}
	return updated, nil
}

// ReassignGym moves a user to another gym, or detaches them when gymID
// is nil. Superadmin only.
func (s *UserService) ReassignGym(ctx context.Context, actor *domain.User, userID uuid.UUID, gymID *uuid.UUID) (*domain.User, error) {
	if actor == nil || !actor.Roles.Has(domain.RoleSuperAdmin) {
		return nil, ErrPermissionDenied
	}

	target, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	target.GymID = gymID
	return s.saveProfile(ctx, target)
}

// AdminResetPassword issues a temporary password for a user, forcing a
// change at the next sign-in. The temporary password is mailed when an
// email relay is configured and also returned to the caller.
func (s *UserService) AdminResetPassword(ctx context.Context, actor *domain.User, userID uuid.UUID) (string, error) {
	if actor == nil || !actor.Roles.CanManageUsers() {
		return "", ErrPermissionDenied
	}

	target, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}

	temp, err := generateTempPassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}

	if err := s.provider.AdminSetPassword(ctx, userID, temp); err != nil {
		return "", err
	}

	target.RequiresPasswordChange = true
	target.TemporaryPassword = &temp
	if _, err := s.saveProfile(ctx, target); err != nil {
		return "", err
	}

	if s.mail != nil {
		if err := s.mail.SendTemporaryPassword(ctx, target.Email, target.Name, temp); err != nil {
			log.Printf("[USER] Failed to mail temporary password to %s: %v", target.Email, err)
		}
	}
	return temp, nil
}

func (s *UserService) getUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) saveProfile(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.bus.Publish(events.Event{Kind: events.KindProfileUpdated, ID: user.ID, At: user.UpdatedAt})
	return user, nil
}

func generateTempPassword() (string, error) {
	b := make([]byte, tempPasswordLength)
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(b), nil
}
