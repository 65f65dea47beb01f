package claims

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
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

// claimsSink records only the provider surface the projector touches.
type claimsSink struct {
	authn.Provider

	mu     sync.Mutex
	writes map[uuid.UUID]domain.ProjectedClaims
}

func newClaimsSink() *claimsSink {
	return &claimsSink{writes: make(map[uuid.UUID]domain.ProjectedClaims)}
}

func (s *claimsSink) SetCustomClaims(_ context.Context, userID uuid.UUID, claims domain.ProjectedClaims) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[userID] = claims
	return nil
}

func (s *claimsSink) get(userID uuid.UUID) (domain.ProjectedClaims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.writes[userID]
	return c, ok
}

func TestProjectMirrorsProfileRoles(t *testing.T) {
	gymID := uuid.New()
	user := &domain.User{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Roles: domain.RoleSet{domain.RoleAdmin, domain.RoleMember},
		GymID: &gymID,
	}
	sink := newClaimsSink()
	p := NewProjector(newFakeUserRepo(user), sink, events.NewBus())

	p.Project(context.Background(), user.ID)

	claims, ok := sink.get(user.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"admin", "member"}, claims.Roles)
	require.NotNil(t, claims.GymID)
	assert.Equal(t, gymID, *claims.GymID)
	assert.False(t, claims.IsSuperAdmin)
}

func TestProjectSetsSuperAdminFlag(t *testing.T) {
	user := &domain.User{
		ID:    uuid.New(),
		Email: "root@example.com",
		Roles: domain.RoleSet{domain.RoleSuperAdmin, domain.RoleMember},
	}
	sink := newClaimsSink()
	p := NewProjector(newFakeUserRepo(user), sink, events.NewBus())

	p.Project(context.Background(), user.ID)

	claims, ok := sink.get(user.ID)
	require.True(t, ok)
	assert.True(t, claims.IsSuperAdmin)
	assert.Nil(t, claims.GymID)
}

func TestProjectSkipsMissingProfile(t *testing.T) {
	sink := newClaimsSink()
	p := NewProjector(newFakeUserRepo(), sink, events.NewBus())

	id := uuid.New()
	p.Project(context.Background(), id)

	_, ok := sink.get(id)
	assert.False(t, ok)
}

func TestStartProjectsOnProfileEvents(t *testing.T) {
	user := &domain.User{
		ID:    uuid.New(),
		Email: "member@example.com",
		Roles: domain.RoleSet{domain.RoleMember},
	}
	bus := events.NewBus()
	sink := newClaimsSink()
	p := NewProjector(newFakeUserRepo(user), sink, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	bus.Publish(events.Event{Kind: events.KindProfileUpdated, ID: user.ID, At: time.Now()})

	require.Eventually(t, func() bool {
		_, ok := sink.get(user.ID)
		return ok
	}, time.Second, 10*time.Millisecond)

	claims, _ := sink.get(user.ID)
	assert.Equal(t, []string{"member"}, claims.Roles)
}

func TestStartIgnoresGymEvents(t *testing.T) {
	user := &domain.User{
		ID:    uuid.New(),
		Email: "member@example.com",
		Roles: domain.RoleSet{domain.RoleMember},
	}
	bus := events.NewBus()
	sink := newClaimsSink()
	p := NewProjector(newFakeUserRepo(user), sink, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	bus.Publish(events.Event{Kind: events.KindGymUpdated, ID: user.ID, At: time.Now()})

	time.Sleep(50 * time.Millisecond)
	_, ok := sink.get(user.ID)
	assert.False(t, ok)
}
