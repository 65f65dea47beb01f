// Package tenant resolves which gym a session is scoped to. Each resolver
// belongs to exactly one identity session; there is no process-global
// current gym.
package tenant

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
)

// AllGyms is the sentinel selection meaning "view every gym". Only valid
// for superadmins.
const AllGyms = "all"

type Mode int

const (
	ModeUnresolved Mode = iota
	ModeSuperAdminAll
	ModeSingleGym
	ModeUnaffiliated
)

func (m Mode) String() string {
	switch m {
	case ModeSuperAdminAll:
		return "superadmin-all"
	case ModeSingleGym:
		return "single-gym"
	case ModeUnaffiliated:
		return "unaffiliated"
	default:
		return "unresolved"
	}
}

type Resolver struct {
	mu sync.Mutex

	gyms  repository.GymRepository
	prefs repository.PreferenceRepository
	bus   *events.Bus

	// installationID keys the persisted selection; it identifies the
	// client installation, not the principal.
	installationID string

	mode       Mode
	superadmin bool
	profileGym *uuid.UUID
	current    *domain.Gym
	available  []*domain.Gym
	viewAll    bool
	loading    bool

	unsubscribe func()
}

func NewResolver(gyms repository.GymRepository, prefs repository.PreferenceRepository, bus *events.Bus, installationID string) *Resolver {
	return &Resolver{
		gyms:           gyms,
		prefs:          prefs,
		bus:            bus,
		installationID: installationID,
	}
}

// Resolve derives the tenant scope from a freshly loaded profile. Any state
// from a previous principal is discarded first, so a new session can never
// observe the old session's gym.
func (r *Resolver) Resolve(ctx context.Context, profile *domain.User) {
	r.Reset()

	if profile == nil {
		return
	}

	r.mu.Lock()
	r.loading = true
	r.superadmin = profile.Roles.Has(domain.RoleSuperAdmin)
	r.profileGym = profile.GymID
	r.mu.Unlock()

	if r.superadminLocked() {
		r.resolveSuperAdmin(ctx)
	} else if profile.GymID != nil {
		r.resolveSingleGym(ctx, *profile.GymID)
	} else {
		r.mu.Lock()
		r.mode = ModeUnaffiliated
		r.loading = false
		r.mu.Unlock()
		return
	}

	r.subscribe()
}

func (r *Resolver) superadminLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.superadmin
}

func (r *Resolver) resolveSuperAdmin(ctx context.Context) {
	gyms, err := r.gyms.List(ctx)
	if err != nil {
		log.Printf("[TENANT] Gym list failed: %v", err)
		gyms = nil
	}
	sort.Slice(gyms, func(i, j int) bool { return gyms[i].Name < gyms[j].Name })

	persisted, err := r.prefs.GetSelectedGym(ctx, r.installationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("[TENANT] Preference read failed: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = ModeSuperAdminAll
	r.available = gyms
	r.loading = false

	if persisted == AllGyms {
		r.viewAll = true
		r.current = nil
		return
	}
	if persisted != "" {
		if g := findGym(gyms, persisted); g != nil {
			r.current = g
			return
		}
	}
	// Nothing usable persisted: first gym alphabetically.
	if len(gyms) > 0 {
		r.current = gyms[0]
	}
}

func (r *Resolver) resolveSingleGym(ctx context.Context, gymID uuid.UUID) {
	gym, err := r.gyms.GetByID(ctx, gymID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("[TENANT] Gym load failed for %s: %v", gymID, err)
		}
		gym = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = ModeSingleGym
	r.loading = false
	if gym != nil {
		r.current = gym
		r.available = []*domain.Gym{gym}
	} else {
		// The gym vanished out from under the member; a stale object must
		// not keep serving its old suspension state.
		r.current = nil
		r.available = nil
	}
}

// subscribe attaches to the gym event stream so suspension flips and
// renames take effect without a reload.
func (r *Resolver) subscribe() {
	cancel := r.bus.Subscribe(func(e events.Event) bool { return e.IsGym() }, func(e events.Event) {
		r.handleGymEvent(e)
	})

	r.mu.Lock()
	if r.mode == ModeUnresolved {
		// Reset raced us; do not leave a dangling subscription.
		r.mu.Unlock()
		cancel()
		return
	}
	r.unsubscribe = cancel
	r.mu.Unlock()
}

func (r *Resolver) handleGymEvent(events.Event) {
	ctx := context.Background()

	r.mu.Lock()
	mode := r.mode
	profileGym := r.profileGym
	currentID := ""
	if r.current != nil {
		currentID = r.current.ID.String()
	}
	viewAll := r.viewAll
	r.mu.Unlock()

	switch mode {
	case ModeSuperAdminAll:
		gyms, err := r.gyms.List(ctx)
		if err != nil {
			log.Printf("[TENANT] Gym list refresh failed: %v", err)
			return
		}
		sort.Slice(gyms, func(i, j int) bool { return gyms[i].Name < gyms[j].Name })

		r.mu.Lock()
		if r.mode != ModeSuperAdminAll {
			r.mu.Unlock()
			return
		}
		r.available = gyms
		if !viewAll {
			if g := findGym(gyms, currentID); g != nil {
				r.current = g
			} else if len(gyms) > 0 {
				r.current = gyms[0]
			} else {
				r.current = nil
			}
		}
		r.mu.Unlock()

	case ModeSingleGym:
		if profileGym == nil {
			return
		}
		r.resolveSingleGym(ctx, *profileGym)
	}
}

// Select changes the active gym. Only meaningful in superadmin mode; a gym
// outside Available is a no-op. The choice is persisted so it survives
// reload, but never treated as authoritative.
func (r *Resolver) Select(ctx context.Context, value string) {
	r.mu.Lock()
	if r.mode != ModeSuperAdminAll {
		r.mu.Unlock()
		return
	}

	if value == AllGyms {
		r.viewAll = true
		r.current = nil
		r.mu.Unlock()
		r.persist(ctx, AllGyms)
		return
	}

	g := findGym(r.available, value)
	if g == nil {
		r.mu.Unlock()
		return
	}
	r.viewAll = false
	r.current = g
	r.mu.Unlock()
	r.persist(ctx, value)
}

func (r *Resolver) persist(ctx context.Context, value string) {
	if err := r.prefs.SetSelectedGym(ctx, r.installationID, value); err != nil {
		log.Printf("[TENANT] Failed to persist gym selection: %v", err)
	}
}

// IsSuspended mirrors the active gym's suspended flag. Superadmins
// always see false so they can still reach a suspended gym to
// remediate it.
func (r *Resolver) IsSuspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.superadmin {
		return false
	}
	return r.current != nil && r.current.Suspended
}

func (r *Resolver) Current() *domain.Gym {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Resolver) Available() []*domain.Gym {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Gym, len(r.available))
	copy(out, r.available)
	return out
}

func (r *Resolver) ViewAll() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewAll
}

func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *Resolver) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Reset discards all resolved state and detaches from the event stream.
func (r *Resolver) Reset() {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.mode = ModeUnresolved
	r.superadmin = false
	r.profileGym = nil
	r.current = nil
	r.available = nil
	r.viewAll = false
	r.loading = false
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func findGym(gyms []*domain.Gym, id string) *domain.Gym {
	for _, g := range gyms {
		if g.ID.String() == id {
			return g
		}
	}
	return nil
}
