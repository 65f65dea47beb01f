package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
	"github.com/fitclub/club-service/internal/tenant"
)

// Handle pairs an identity session with the tenant resolver scoped to it.
type Handle struct {
	Session  *Session
	Resolver *tenant.Resolver

	unsubscribe func()
}

// Manager owns the live sessions, keyed by principal id. Attaching an
// already-known principal reuses its handle; detaching tears down both the
// session and its resolver so nothing from the old principal leaks into the
// next one.
type Manager struct {
	mu      sync.Mutex
	handles map[uuid.UUID]*Handle

	users repository.UserRepository
	gyms  repository.GymRepository
	prefs repository.PreferenceRepository
	bus   *events.Bus
}

func NewManager(
	users repository.UserRepository,
	gyms repository.GymRepository,
	prefs repository.PreferenceRepository,
	bus *events.Bus,
) *Manager {
	return &Manager{
		handles: make(map[uuid.UUID]*Handle),
		users:   users,
		gyms:    gyms,
		prefs:   prefs,
		bus:     bus,
	}
}

// Attach returns the handle for the principal, building session and
// resolver on first sight. installationID keys the persisted gym
// selection.
func (m *Manager) Attach(ctx context.Context, principal *authn.Principal, installationID string) *Handle {
	m.mu.Lock()
	if h, ok := m.handles[principal.ID]; ok {
		m.mu.Unlock()
		return h
	}
	h := &Handle{
		Session:  New(m.users, m.bus),
		Resolver: tenant.NewResolver(m.gyms, m.prefs, m.bus, installationID),
	}
	m.handles[principal.ID] = h
	m.mu.Unlock()

	h.Session.OnAuthChange(ctx, principal)
	h.Resolver.Resolve(ctx, h.Session.Profile())

	// A profile write can change roles or gym affiliation, either of which
	// changes the tenant scope; re-resolve on every profile event.
	id := principal.ID
	h.unsubscribe = m.bus.Subscribe(func(e events.Event) bool {
		return e.IsProfile() && e.ID == id
	}, func(events.Event) {
		h.Resolver.Resolve(context.Background(), h.Session.Profile())
	})

	return h
}

// Get returns the live handle for a principal, or nil.
func (m *Manager) Get(principalID uuid.UUID) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[principalID]
}

// Detach logs the principal out of the manager, discarding session and
// tenant state before the map entry goes away.
func (m *Manager) Detach(principalID uuid.UUID) {
	m.mu.Lock()
	h, ok := m.handles[principalID]
	delete(m.handles, principalID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.Resolver.Reset()
	h.Session.Close()
}
