package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) ListByGym(_ context.Context, gymID uuid.UUID, _, _ int) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.GymID != nil && *u.GymID == gymID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int, _ string) ([]*domain.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

type fakeGymRepo struct {
	mu   sync.Mutex
	gyms map[uuid.UUID]*domain.Gym
}

func newFakeGymRepo(gyms ...*domain.Gym) *fakeGymRepo {
	r := &fakeGymRepo{gyms: make(map[uuid.UUID]*domain.Gym)}
	for _, g := range gyms {
		r.gyms[g.ID] = g
	}
	return r
}

func (r *fakeGymRepo) Create(_ context.Context, g *domain.Gym) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.gyms[g.ID] = &cp
	return nil
}

func (r *fakeGymRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Gym, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gyms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGymRepo) GetBySlug(_ context.Context, slug string) (*domain.Gym, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gyms {
		if g.Slug == slug {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeGymRepo) Update(_ context.Context, g *domain.Gym) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gyms[g.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *g
	r.gyms[g.ID] = &cp
	return nil
}

func (r *fakeGymRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gyms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.gyms, id)
	return nil
}

func (r *fakeGymRepo) List(_ context.Context) ([]*domain.Gym, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Gym
	for _, g := range r.gyms {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*domain.Invitation
}

func newFakeInvitationRepo(invitations ...*domain.Invitation) *fakeInvitationRepo {
	r := &fakeInvitationRepo{invitations: make(map[uuid.UUID]*domain.Invitation)}
	for _, inv := range invitations {
		r.invitations[inv.ID] = inv
	}
	return r
}

func (r *fakeInvitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invitations[inv.ID] = &cp
	return nil
}

func (r *fakeInvitationRepo) GetByCode(_ context.Context, code string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invitations {
		if inv.Code == code {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeInvitationRepo) Update(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invitations[inv.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *inv
	r.invitations[inv.ID] = &cp
	return nil
}

// MarkUsed mirrors the guarded SQL update: it matches only an unused row.
func (r *fakeInvitationRepo) MarkUsed(_ context.Context, id uuid.UUID, registered domain.RegisteredUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[id]
	if !ok || inv.IsUsed() {
		return repository.ErrNotFound
	}
	used := true
	now := time.Now()
	inv.Used = &used
	inv.UsedCount++
	inv.UsedAt = &now
	inv.RegisteredUser = &registered
	return nil
}

func (r *fakeInvitationRepo) ListByGym(_ context.Context, gymID uuid.UUID, _, _ int) ([]*domain.Invitation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Invitation
	for _, inv := range r.invitations {
		if inv.GymID == gymID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *fakeInvitationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invitations, id)
	return nil
}

type fakeAccount struct {
	principal authn.Principal
	password  string
	claims    *domain.ProjectedClaims
}

// fakeProvider is an in-memory authn.Provider.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount

	revoked     []uuid.UUID
	signOuts    int
	resetsSent  []string
	setPassword map[uuid.UUID]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts:    make(map[string]*fakeAccount),
		setPassword: make(map[uuid.UUID]string),
	}
}

func (p *fakeProvider) addAccount(email, password string) uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.New()
	p.accounts[strings.ToLower(email)] = &fakeAccount{
		principal: authn.Principal{ID: id, Email: email},
		password:  password,
	}
	return id
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*authn.Principal, *domain.TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return nil, nil, authn.ErrUserNotFound
	}
	if acc.password != password {
		return nil, nil, authn.ErrWrongCredential
	}
	principal := acc.principal
	return &principal, &domain.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string) (*authn.Principal, *domain.TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := p.accounts[key]; ok {
		return nil, nil, authn.ErrEmailInUse
	}
	acc := &fakeAccount{
		principal: authn.Principal{ID: uuid.New(), Email: email},
		password:  password,
	}
	p.accounts[key] = acc
	principal := acc.principal
	return &principal, &domain.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (p *fakeProvider) SignOut(_ context.Context, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	return nil
}

func (p *fakeProvider) Refresh(_ context.Context, _ string) (*domain.TokenPair, error) {
	return &domain.TokenPair{AccessToken: "access2", RefreshToken: "refresh2"}, nil
}

func (p *fakeProvider) VerifyToken(_ context.Context, _ string) (*domain.Claims, error) {
	return nil, authn.ErrAuthUnavailable
}

func (p *fakeProvider) SendPasswordReset(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[strings.ToLower(email)]; !ok {
		return authn.ErrUserNotFound
	}
	p.resetsSent = append(p.resetsSent, email)
	return nil
}

func (p *fakeProvider) ChangePassword(_ context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, acc := range p.accounts {
		if acc.principal.ID == userID {
			if acc.password != oldPassword {
				return authn.ErrWrongCredential
			}
			acc.password = newPassword
			return nil
		}
	}
	return authn.ErrUserNotFound
}

func (p *fakeProvider) AdminSetPassword(_ context.Context, userID uuid.UUID, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setPassword[userID] = password
	for _, acc := range p.accounts {
		if acc.principal.ID == userID {
			acc.password = password
		}
	}
	return nil
}

func (p *fakeProvider) SetCustomClaims(_ context.Context, userID uuid.UUID, claims domain.ProjectedClaims) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, acc := range p.accounts {
		if acc.principal.ID == userID {
			cp := claims
			acc.claims = &cp
			return nil
		}
	}
	return authn.ErrUserNotFound
}

func (p *fakeProvider) RevokeSessions(_ context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, userID)
	return nil
}

type sentMail struct {
	kind string
	to   string
	code string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMail) SendInvitation(_ context.Context, to, _, code string, _ *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "invitation", to: to, code: code})
	return nil
}

func (m *fakeMail) SendTemporaryPassword(_ context.Context, to, _, tempPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "temporary_password", to: to, code: tempPassword})
	return nil
}

func (m *fakeMail) SendPasswordReset(_ context.Context, to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: "password_reset", to: to, code: token})
	return nil
}

func adminOf(gymID uuid.UUID) *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Name:  "Admin",
		Roles: domain.RoleSet{domain.RoleAdmin, domain.RoleMember},
		GymID: &gymID,
	}
}

func superadmin() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "root@example.com",
		Name:  "Root",
		Roles: domain.RoleSet{domain.RoleSuperAdmin, domain.RoleMember},
	}
}

func plainMember(gymID *uuid.UUID) *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "member@example.com",
		Name:  "Member",
		Roles: domain.RoleSet{domain.RoleMember},
		GymID: gymID,
	}
}
