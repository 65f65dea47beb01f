package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeProvider, *fakeUserRepo, *fakeInvitationRepo, *domain.Gym) {
	t.Helper()
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}
	provider := newFakeProvider()
	users := newFakeUserRepo()
	gyms := newFakeGymRepo(gym)
	invitations := newFakeInvitationRepo()
	invites := NewInviteService(invitations, gyms, nil, 8)
	svc := NewAuthService(provider, users, gyms, invites, events.NewBus())
	return svc, provider, users, invitations, gym
}

func TestRegisterCreatesMemberProfile(t *testing.T) {
	svc, _, users, _, _ := newAuthFixture(t)

	principal, tokens, err := svc.Register(context.Background(), "new@example.com", "secret123", "New User", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, tokens)

	profile, err := users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", profile.Email)
	assert.Equal(t, domain.RoleSet{domain.RoleMember}, profile.Roles)
	assert.Nil(t, profile.GymID)
}

func TestRegisterKeepsPhoneAndChosenGym(t *testing.T) {
	svc, _, users, _, gym := newAuthFixture(t)

	phone := "+4917612345678"
	principal, _, err := svc.Register(context.Background(), "walkin@example.com", "secret123", "Walk In", &phone, &gym.ID)
	require.NoError(t, err)

	profile, err := users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, phone, *profile.Phone)
	require.NotNil(t, profile.GymID)
	assert.Equal(t, gym.ID, *profile.GymID)
}

func TestRegisterRejectsUnknownGym(t *testing.T) {
	svc, provider, _, _, _ := newAuthFixture(t)

	nowhere := uuid.New()
	_, _, err := svc.Register(context.Background(), "lost@example.com", "secret123", "Lost", nil, &nowhere)
	assert.ErrorIs(t, err, ErrGymNotFound)
	assert.Empty(t, provider.accounts, "no account is created for an unknown gym")
}

func TestRegisterWithInviteKeepsPhone(t *testing.T) {
	svc, _, users, _, gym := newAuthFixture(t)

	inv, err := svc.invites.Generate(context.Background(), adminOf(gym.ID), gym.ID, domain.RoleSet{domain.RoleMember}, nil, nil, 7)
	require.NoError(t, err)

	phone := "+4915198765432"
	principal, _, err := svc.RegisterWithInvite(context.Background(), "invited@example.com", "secret123", "Invited", inv.Code, &phone)
	require.NoError(t, err)

	profile, err := users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Phone)
	assert.Equal(t, phone, *profile.Phone)
}

func TestRegisterExistingAccountIntactProfile(t *testing.T) {
	svc, _, _, _, _ := newAuthFixture(t)

	_, _, err := svc.Register(context.Background(), "dup@example.com", "secret123", "First", nil, nil)
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "dup@example.com", "secret123", "Second", nil, nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterExistingAccountWrongPassword(t *testing.T) {
	svc, provider, _, _, _ := newAuthFixture(t)
	provider.addAccount("taken@example.com", "rightpass")

	_, _, err := svc.Register(context.Background(), "taken@example.com", "wrongpass", "Imposter", nil, nil)
	assert.ErrorIs(t, err, authn.ErrEmailInUse)
}

func TestRegisterRebuildsLostProfile(t *testing.T) {
	svc, provider, users, _, _ := newAuthFixture(t)

	// Account exists but the profile record is gone.
	id := provider.addAccount("orphan@example.com", "secret123")

	principal, _, err := svc.Register(context.Background(), "orphan@example.com", "secret123", "Orphan", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, id, principal.ID)

	profile, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSet{domain.RoleMember}, profile.Roles)
}

func TestRegisterWithInviteGrantsRolesAndGym(t *testing.T) {
	svc, _, users, _, gym := newAuthFixture(t)

	inv, err := svc.invites.Generate(context.Background(), adminOf(gym.ID), gym.ID, domain.RoleSet{domain.RoleInstructor}, nil, nil, 7)
	require.NoError(t, err)

	principal, _, err := svc.RegisterWithInvite(context.Background(), "coach@example.com", "secret123", "Coach", inv.Code, nil)
	require.NoError(t, err)

	profile, err := users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	assert.True(t, profile.Roles.Has(domain.RoleInstructor))
	require.NotNil(t, profile.GymID)
	assert.Equal(t, gym.ID, *profile.GymID)

	redeemed, err := svc.invites.Lookup(context.Background(), inv.Code)
	require.NoError(t, err)
	assert.True(t, redeemed.IsUsed())
	require.NotNil(t, redeemed.RegisteredUser)
	assert.Equal(t, principal.ID, redeemed.RegisteredUser.UserID)
}

func TestRegisterWithInviteRejectsBadCode(t *testing.T) {
	svc, provider, _, _, _ := newAuthFixture(t)

	_, _, err := svc.RegisterWithInvite(context.Background(), "x@example.com", "secret123", "X", "NOSUCH00", nil)
	assert.ErrorIs(t, err, ErrInviteNotFound)
	assert.Empty(t, provider.accounts, "no account is created for a bad code")
}

func TestRegisterWithInviteRejectsWrongEmail(t *testing.T) {
	svc, _, _, _, gym := newAuthFixture(t)

	bound := "vip@example.com"
	inv, err := svc.invites.Generate(context.Background(), adminOf(gym.ID), gym.ID, domain.RoleSet{domain.RoleMember}, nil, &bound, 7)
	require.NoError(t, err)

	_, _, err = svc.RegisterWithInvite(context.Background(), "stranger@example.com", "secret123", "Stranger", inv.Code, nil)
	assert.ErrorIs(t, err, ErrInviteEmailMismatch)
}

func TestRegisterWithInviteRejectsExpired(t *testing.T) {
	svc, _, _, invitations, gym := newAuthFixture(t)

	past := time.Now().Add(-time.Hour)
	used := false
	inv := &domain.Invitation{
		ID:        uuid.New(),
		Code:      "OLDCODE1",
		GymID:     gym.ID,
		Roles:     domain.RoleSet{domain.RoleMember},
		Used:      &used,
		ExpiresAt: &past,
		CreatedBy: uuid.New(),
	}
	require.NoError(t, invitations.Create(context.Background(), inv))

	_, _, err := svc.RegisterWithInvite(context.Background(), "late@example.com", "secret123", "Late", "OLDCODE1", nil)
	assert.ErrorIs(t, err, ErrInviteExpired)
}

func TestLoginRejectsBlockedUser(t *testing.T) {
	svc, provider, users, _, _ := newAuthFixture(t)

	principal, _, err := svc.Register(context.Background(), "blocked@example.com", "secret123", "Blocked", nil, nil)
	require.NoError(t, err)

	profile, err := users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	profile.IsBlocked = true
	require.NoError(t, users.Update(context.Background(), profile))

	_, _, err = svc.Login(context.Background(), "blocked@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUserBlocked)
	assert.Equal(t, 1, provider.signOuts, "issued tokens are revoked on a blocked login")
}

func TestLoginWithoutProfileStillSucceeds(t *testing.T) {
	svc, provider, _, _, _ := newAuthFixture(t)
	provider.addAccount("orphan@example.com", "secret123")

	principal, tokens, err := svc.Login(context.Background(), "orphan@example.com", "secret123")
	require.NoError(t, err)
	assert.NotNil(t, principal)
	assert.NotNil(t, tokens, "a missing profile routes to re-registration, not a login failure")
}

func TestChangePasswordClearsTemporaryFlag(t *testing.T) {
	svc, _, users, _, _ := newAuthFixture(t)

	principal, _, err := svc.Register(context.Background(), "temp@example.com", "temppass1", "Temp", nil, nil)
	require.NoError(t, err)

	profile, err := users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	tmp := "temppass1"
	profile.RequiresPasswordChange = true
	profile.TemporaryPassword = &tmp
	require.NoError(t, users.Update(context.Background(), profile))

	require.NoError(t, svc.ChangePassword(context.Background(), principal.ID, "temppass1", "newsecret1"))

	profile, err = users.GetByID(context.Background(), principal.ID)
	require.NoError(t, err)
	assert.False(t, profile.RequiresPasswordChange)
	assert.Nil(t, profile.TemporaryPassword)
}

func TestRequestPasswordResetHidesUnknownEmails(t *testing.T) {
	svc, provider, _, _, _ := newAuthFixture(t)
	provider.addAccount("known@example.com", "secret123")

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "known@example.com"))
	assert.NoError(t, svc.RequestPasswordReset(context.Background(), "unknown@example.com"))
	assert.Len(t, provider.resetsSent, 1)
}
