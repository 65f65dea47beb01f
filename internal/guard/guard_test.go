package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
	"github.com/fitclub/club-service/internal/session"
	"github.com/fitclub/club-service/internal/tenant"
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
	r.users[u.ID] = u
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

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *fakeUserRepo) ListByGym(_ context.Context, _ uuid.UUID, _, _ int) ([]*domain.User, int, error) {
	return nil, 0, nil
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int, _ string) ([]*domain.User, int, error) {
	return nil, 0, nil
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
	r.gyms[g.ID] = g
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
	cp := *g
	r.gyms[g.ID] = &cp
	return nil
}

func (r *fakeGymRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type fakePrefRepo struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakePrefRepo() *fakePrefRepo {
	return &fakePrefRepo{vals: make(map[string]string)}
}

func (r *fakePrefRepo) GetSelectedGym(_ context.Context, installationID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vals[installationID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (r *fakePrefRepo) SetSelectedGym(_ context.Context, installationID, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vals[installationID] = value
	return nil
}

type fixture struct {
	sess     *session.Session
	resolver *tenant.Resolver
}

func attach(t *testing.T, user *domain.User, gyms ...*domain.Gym) fixture {
	t.Helper()
	bus := events.NewBus()
	users := newFakeUserRepo(user)
	gymRepo := newFakeGymRepo(gyms...)

	sess := session.New(users, bus)
	sess.OnAuthChange(context.Background(), &authn.Principal{ID: user.ID, Email: user.Email})
	t.Cleanup(sess.Close)

	resolver := tenant.NewResolver(gymRepo, newFakePrefRepo(), bus, "test-inst")
	resolver.Resolve(context.Background(), sess.Profile())
	t.Cleanup(resolver.Reset)

	return fixture{sess: sess, resolver: resolver}
}

func member(gymID *uuid.UUID) *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "m@example.com",
		Roles: domain.RoleSet{domain.RoleMember},
		GymID: gymID,
	}
}

func TestEvaluateNoPrincipalRedirectsLogin(t *testing.T) {
	g := &Guard{}
	res := g.Evaluate(nil, nil, nil)
	assert.Equal(t, RedirectLogin, res.Decision)
}

func TestEvaluateAllowsMember(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}
	f := attach(t, member(&gym.ID), gym)

	g := &Guard{}
	res := g.Evaluate(f.sess, f.resolver, nil)
	assert.Equal(t, Allow, res.Decision)
}

func TestEvaluateBlockedFiresCallback(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}
	u := member(&gym.ID)
	u.IsBlocked = true
	f := attach(t, u, gym)

	var fired bool
	g := &Guard{OnBlocked: func(*session.Session) { fired = true }}

	res := g.Evaluate(f.sess, f.resolver, nil)
	assert.Equal(t, RedirectBlocked, res.Decision)
	assert.True(t, fired, "a blocked principal must trigger the side effect")
}

func TestEvaluateSuspendedGym(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple", Suspended: true}
	f := attach(t, member(&gym.ID), gym)

	g := &Guard{}
	res := g.Evaluate(f.sess, f.resolver, nil)
	assert.Equal(t, RedirectSuspended, res.Decision)
}

func TestEvaluateBlockedBeatsSuspended(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple", Suspended: true}
	u := member(&gym.ID)
	u.IsBlocked = true
	f := attach(t, u, gym)

	g := &Guard{}
	res := g.Evaluate(f.sess, f.resolver, nil)
	assert.Equal(t, RedirectBlocked, res.Decision)
}

func TestEvaluateInsufficientRoleFallsBack(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}
	f := attach(t, member(&gym.ID), gym)

	g := &Guard{}
	res := g.Evaluate(f.sess, f.resolver, domain.RoleSet{domain.RoleAdmin})
	assert.Equal(t, RedirectInsufficientRole, res.Decision)
	assert.Equal(t, "/home", res.Fallback)
}

func TestEvaluateRoleDominance(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}

	tests := []struct {
		name     string
		roles    domain.RoleSet
		required domain.RoleSet
		want     Decision
	}{
		{"superadmin passes admin route", domain.RoleSet{domain.RoleSuperAdmin, domain.RoleMember}, domain.RoleSet{domain.RoleAdmin}, Allow},
		{"admin passes instructor route", domain.RoleSet{domain.RoleAdmin, domain.RoleMember}, domain.RoleSet{domain.RoleInstructor}, Allow},
		{"instructor passes member route", domain.RoleSet{domain.RoleInstructor, domain.RoleMember}, domain.RoleSet{domain.RoleMember}, Allow},
		{"instructor denied admin route", domain.RoleSet{domain.RoleInstructor, domain.RoleMember}, domain.RoleSet{domain.RoleAdmin}, RedirectInsufficientRole},
		{"member denied instructor route", domain.RoleSet{domain.RoleMember}, domain.RoleSet{domain.RoleInstructor}, RedirectInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &domain.User{
				ID:    uuid.New(),
				Email: "u@example.com",
				Roles: tt.roles,
			}
			if !tt.roles.Has(domain.RoleSuperAdmin) {
				u.GymID = &gym.ID
			}
			f := attach(t, u, gym)

			g := &Guard{}
			res := g.Evaluate(f.sess, f.resolver, tt.required)
			assert.Equal(t, tt.want, res.Decision)
		})
	}
}

func TestEvaluateSimulatedRoleIsDenied(t *testing.T) {
	gym := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}
	super := &domain.User{
		ID:    uuid.New(),
		Email: "root@example.com",
		Roles: domain.RoleSet{domain.RoleSuperAdmin, domain.RoleMember},
	}
	f := attach(t, super, gym)

	g := &Guard{}
	res := g.Evaluate(f.sess, f.resolver, domain.RoleSet{domain.RoleAdmin})
	require.Equal(t, Allow, res.Decision, "superadmin passes admin routes")

	require.NoError(t, f.sess.StartRoleSimulation(domain.RoleMember))
	res = g.Evaluate(f.sess, f.resolver, domain.RoleSet{domain.RoleAdmin})
	assert.Equal(t, RedirectInsufficientRole, res.Decision, "simulation narrows guard decisions")
	assert.Equal(t, "/home", res.Fallback)
}

func TestDefaultRoute(t *testing.T) {
	tests := []struct {
		name  string
		roles domain.RoleSet
		want  string
	}{
		{"superadmin", domain.RoleSet{domain.RoleSuperAdmin, domain.RoleMember}, "/admin"},
		{"admin", domain.RoleSet{domain.RoleAdmin, domain.RoleMember}, "/admin"},
		{"instructor", domain.RoleSet{domain.RoleInstructor, domain.RoleMember}, "/schedule"},
		{"member", domain.RoleSet{domain.RoleMember}, "/home"},
		{"empty", domain.RoleSet{}, "/home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultRoute(tt.roles))
		})
	}
}

func TestBindSlugConvergence(t *testing.T) {
	iron := &domain.Gym{ID: uuid.New(), Name: "Iron Temple", Slug: "iron-temple"}
	zen := &domain.Gym{ID: uuid.New(), Name: "Zen Dojo", Slug: "zen-dojo"}
	super := &domain.User{
		ID:    uuid.New(),
		Email: "root@example.com",
		Roles: domain.RoleSet{domain.RoleSuperAdmin, domain.RoleMember},
	}
	f := attach(t, super, iron, zen)
	require.Equal(t, iron.ID, f.resolver.Current().ID)

	// Already bound: no switch.
	decision, got := BindSlug(context.Background(), f.resolver, "iron-temple")
	assert.Equal(t, SlugBound, decision)
	assert.Equal(t, iron.ID, got.ID)

	// Different available slug: one Select, then bound on re-evaluation.
	decision, got = BindSlug(context.Background(), f.resolver, "zen-dojo")
	assert.Equal(t, SlugPending, decision)
	assert.Equal(t, zen.ID, got.ID)

	decision, _ = BindSlug(context.Background(), f.resolver, "zen-dojo")
	assert.Equal(t, SlugBound, decision, "binding converges after exactly one selection")

	// Unknown slug.
	decision, got = BindSlug(context.Background(), f.resolver, "nowhere")
	assert.Equal(t, SlugRedirectSelect, decision)
	assert.Nil(t, got)
}
