package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
)

var (
	ErrUserBlocked       = errors.New("account is blocked")
	ErrAlreadyRegistered = errors.New("account already registered")
)

// AuthService drives sign-in, registration, and sign-out against the
// authentication provider, keeping the profile store consistent with
// provider accounts. Registration with an existing account is treated as
// a recovery path, not a hard failure, so a user whose profile was lost
// can register again and regain a working identity.
type AuthService struct {
	provider authn.Provider
	users    repository.UserRepository
	gyms     repository.GymRepository
	invites  *InviteService
	bus      *events.Bus
	now      func() time.Time
}

func NewAuthService(
	provider authn.Provider,
	users repository.UserRepository,
	gyms repository.GymRepository,
	invites *InviteService,
	bus *events.Bus,
) *AuthService {
	return &AuthService{
		provider: provider,
		users:    users,
		gyms:     gyms,
		invites:  invites,
		bus:      bus,
		now:      time.Now,
	}
}

// Login verifies credentials and rejects blocked accounts before any
// token reaches the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*authn.Principal, *domain.TokenPair, error) {
	principal, tokens, err := s.provider.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.users.GetByID(ctx, principal.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil && profile.IsBlocked {
		_ = s.provider.SignOut(ctx, tokens.AccessToken, tokens.RefreshToken)
		return nil, nil, ErrUserBlocked
	}

	return principal, tokens, nil
}

// Register creates a provider account and a member profile, optionally
// attached to a gym the registrant picked themselves. When the email
// already has a provider account, the password is verified against it and
// a missing profile is rebuilt instead of failing; an intact profile
// reports ErrAlreadyRegistered.
func (s *AuthService) Register(ctx context.Context, email, password, name string, phone *string, gymID *uuid.UUID) (*authn.Principal, *domain.TokenPair, error) {
	email = strings.TrimSpace(email)

	if gymID != nil {
		if _, err := s.gyms.GetByID(ctx, *gymID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil, ErrGymNotFound
			}
			return nil, nil, fmt.Errorf("failed to load gym: %w", err)
		}
	}

	principal, tokens, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		if !errors.Is(err, authn.ErrEmailInUse) {
			return nil, nil, err
		}
		principal, tokens, err = s.provider.SignIn(ctx, email, password)
		if err != nil {
			if errors.Is(err, authn.ErrWrongCredential) {
				return nil, nil, authn.ErrEmailInUse
			}
			return nil, nil, err
		}
		if _, err := s.users.GetByID(ctx, principal.ID); err == nil {
			return nil, nil, ErrAlreadyRegistered
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to load profile: %w", err)
		}
		log.Printf("[AUTH] Rebuilding missing profile for account %s", principal.ID)
	}

	if _, err := s.createProfile(ctx, principal, name, phone, domain.RoleSet{domain.RoleMember}, gymID); err != nil {
		return nil, nil, err
	}
	return principal, tokens, nil
}

// RegisterWithInvite registers a new user through an invitation code. The
// invitation is validated against the registrant's email first; the
// profile is created with the invitation's roles and gym, and only then
// is the code marked used. A redemption failure after the profile exists
// is logged rather than unwinding the registration.
func (s *AuthService) RegisterWithInvite(ctx context.Context, email, password, name, code string, phone *string) (*authn.Principal, *domain.TokenPair, error) {
	email = strings.TrimSpace(email)

	inv, err := s.invites.Lookup(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if status := s.invites.Validate(inv, email); status != InviteValid {
		return nil, nil, StatusError(status)
	}

	principal, tokens, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	gymID := inv.GymID
	if _, err := s.createProfile(ctx, principal, name, phone, inv.Roles, &gymID); err != nil {
		return nil, nil, err
	}

	if err := s.invites.Redeem(ctx, inv, principal.ID, name, email); err != nil {
		log.Printf("[AUTH] Invitation %s redemption failed after registration of %s: %v", inv.Code, principal.ID, err)
	}

	return principal, tokens, nil
}

// Logout revokes the tokens with the provider. Session state held by the
// caller is discarded separately by the session manager.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return s.provider.SignOut(ctx, accessToken, refreshToken)
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return s.provider.Refresh(ctx, refreshToken)
}

// ChangePassword verifies the current password and sets a new one,
// clearing any admin-issued temporary password flag on the profile.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if err := s.provider.ChangePassword(ctx, userID, oldPassword, newPassword); err != nil {
		return err
	}

	profile, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if profile.RequiresPasswordChange || profile.TemporaryPassword != nil {
		profile.RequiresPasswordChange = false
		profile.TemporaryPassword = nil
		if err := s.users.Update(ctx, profile); err != nil {
			return err
		}
		s.bus.Publish(events.Event{Kind: events.KindProfileUpdated, ID: userID, At: s.now()})
	}
	return nil
}

// RequestPasswordReset asks the provider to start a reset flow. Unknown
// emails are not distinguishable from known ones to the caller.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	err := s.provider.SendPasswordReset(ctx, strings.TrimSpace(email))
	if errors.Is(err, authn.ErrUserNotFound) {
		return nil
	}
	return err
}

func (s *AuthService) createProfile(ctx context.Context, principal *authn.Principal, name string, phone *string, roles domain.RoleSet, gymID *uuid.UUID) (*domain.User, error) {
	now := s.now()
	user := &domain.User{
		ID:        principal.ID,
		Email:     principal.Email,
		Name:      name,
		Phone:     phone,
		Roles:     domain.NormalizeRoles(roles, ""),
		GymID:     gymID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	s.bus.Publish(events.Event{Kind: events.KindProfileCreated, ID: user.ID, At: now})
	return user, nil
}
