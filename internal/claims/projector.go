// Package claims mirrors persisted profile roles onto the auth provider's
// token claims so downstream authorization can branch without re-querying
// the profile. Projection is asynchronous and eventually consistent:
// claims may lag a profile write by one propagation cycle.
package claims

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
)

type Projector struct {
	users    repository.UserRepository
	provider authn.Provider
	bus      *events.Bus

	queue       chan uuid.UUID
	unsubscribe func()
}

func NewProjector(users repository.UserRepository, provider authn.Provider, bus *events.Bus) *Projector {
	return &Projector{
		users:    users,
		provider: provider,
		bus:      bus,
		queue:    make(chan uuid.UUID, 256),
	}
}

// Start subscribes to the profile event stream and projects until ctx is
// cancelled. Projection runs decoupled from whatever session triggered the
// write; a full queue drops the trigger with a log line rather than
// blocking the publisher.
func (p *Projector) Start(ctx context.Context) {
	p.unsubscribe = p.bus.Subscribe(func(e events.Event) bool { return e.IsProfile() }, func(e events.Event) {
		select {
		case p.queue <- e.ID:
		default:
			log.Printf("[CLAIMS] Projection queue full, dropping trigger for %s", e.ID)
		}
	})

	go func() {
		defer p.unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case userID := <-p.queue:
				p.Project(ctx, userID)
			}
		}
	}()
}

// Project reads the current profile state and writes the compact claims
// object through the provider's administrative API. Failures are logged
// and not retried; the next profile write re-triggers projection.
func (p *Projector) Project(ctx context.Context, userID uuid.UUID) {
	profile, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Profile deleted between write and projection: nothing to mirror.
			return
		}
		log.Printf("[CLAIMS] Profile read failed for %s: %v", userID, err)
		return
	}

	projected := domain.ProjectedClaims{
		Roles:        profile.Roles.Strings(),
		GymID:        profile.GymID,
		IsSuperAdmin: profile.Roles.Has(domain.RoleSuperAdmin),
	}

	if err := p.provider.SetCustomClaims(ctx, userID, projected); err != nil {
		log.Printf("[CLAIMS] Claims write failed for %s: %v", userID, err)
	}
}
