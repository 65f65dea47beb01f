package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/events"
	"github.com/fitclub/club-service/internal/repository"
)

var (
	ErrGymNotFound = errors.New("gym not found")
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// GymService manages the gym catalog. Creation, suspension, and deletion
// are superadmin operations; every mutation is published on the bus so
// resolvers tracking the gym list converge without polling.
type GymService struct {
	gyms repository.GymRepository
	bus  *events.Bus
	now  func() time.Time
}

func NewGymService(gyms repository.GymRepository, bus *events.Bus) *GymService {
	return &GymService{gyms: gyms, bus: bus, now: time.Now}
}

// Create registers a new gym. The URL slug is derived from the name and
// suffixed with a counter until free, so two gyms named "Iron Temple"
// get iron-temple and iron-temple-2.
func (s *GymService) Create(ctx context.Context, actor *domain.User, name string, contactEmail, logoURL *string) (*domain.Gym, error) {
	if actor == nil || !actor.Roles.CanManageGyms() {
		return nil, ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("gym name is required")
	}

	slug, err := s.freeSlug(ctx, Slugify(name))
	if err != nil {
		return nil, err
	}

	now := s.now()
	gym := &domain.Gym{
		ID:           uuid.New(),
		Name:         name,
		Slug:         slug,
		ContactEmail: contactEmail,
		LogoURL:      logoURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.gyms.Create(ctx, gym); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{Kind: events.KindGymCreated, ID: gym.ID, At: now})
	return gym, nil
}

// Update edits a gym's fields. The slug is regenerated only when the
// name actually changed, so existing links stay stable across cosmetic
// edits.
func (s *GymService) Update(ctx context.Context, actor *domain.User, gymID uuid.UUID, name string, contactEmail, logoURL *string) (*domain.Gym, error) {
	if actor == nil || !actor.Roles.CanManageGyms() {
		return nil, ErrPermissionDenied
	}

	gym, err := s.getGym(ctx, gymID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name != "" && name != gym.Name {
		slug, err := s.freeSlug(ctx, Slugify(name))
		if err != nil {
			return nil, err
		}
		gym.Name = name
		gym.Slug = slug
	}
	if contactEmail != nil {
		gym.ContactEmail = contactEmail
	}
	if logoURL != nil {
		gym.LogoURL = logoURL
	}
	gym.UpdatedAt = s.now()

	if err := s.gyms.Update(ctx, gym); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{Kind: events.KindGymUpdated, ID: gym.ID, At: gym.UpdatedAt})
	return gym, nil
}

// Suspend marks a gym suspended with a reason. Members of a suspended
// gym are turned away at the route guard; superadmins still see it.
func (s *GymService) Suspend(ctx context.Context, actor *domain.User, gymID uuid.UUID, reason string) error {
	return s.setSuspended(ctx, actor, gymID, true, &reason)
}

// Unsuspend lifts a suspension.
func (s *GymService) Unsuspend(ctx context.Context, actor *domain.User, gymID uuid.UUID) error {
	return s.setSuspended(ctx, actor, gymID, false, nil)
}

func (s *GymService) setSuspended(ctx context.Context, actor *domain.User, gymID uuid.UUID, suspended bool, reason *string) error {
	if actor == nil || !actor.Roles.CanManageGyms() {
		return ErrPermissionDenied
	}

	gym, err := s.getGym(ctx, gymID)
	if err != nil {
		return err
	}

	gym.Suspended = suspended
	gym.SuspendedReason = reason
	gym.UpdatedAt = s.now()
	if err := s.gyms.Update(ctx, gym); err != nil {
		return err
	}

	s.bus.Publish(events.Event{Kind: events.KindGymUpdated, ID: gym.ID, At: gym.UpdatedAt})
	return nil
}

// Delete soft-deletes a gym. The row survives for audit and for
// invitation snapshots that reference it.
func (s *GymService) Delete(ctx context.Context, actor *domain.User, gymID uuid.UUID) error {
	if actor == nil || !actor.Roles.CanManageGyms() {
		return ErrPermissionDenied
	}

	if _, err := s.getGym(ctx, gymID); err != nil {
		return err
	}
	if err := s.gyms.SoftDelete(ctx, gymID); err != nil {
		return err
	}

	s.bus.Publish(events.Event{Kind: events.KindGymDeleted, ID: gymID, At: s.now()})
	return nil
}

// Get returns a single gym by id.
func (s *GymService) Get(ctx context.Context, gymID uuid.UUID) (*domain.Gym, error) {
	return s.getGym(ctx, gymID)
}

// GetBySlug returns a single gym by its URL slug.
func (s *GymService) GetBySlug(ctx context.Context, slug string) (*domain.Gym, error) {
	gym, err := s.gyms.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return gym, nil
}

// List returns all active gyms ordered by name.
func (s *GymService) List(ctx context.Context) ([]*domain.Gym, error) {
	return s.gyms.List(ctx)
}

func (s *GymService) getGym(ctx context.Context, gymID uuid.UUID) (*domain.Gym, error) {
	gym, err := s.gyms.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return gym, nil
}

// Slugify lowercases a name and collapses every non-alphanumeric run
// into a single hyphen.
func Slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// freeSlug probes for an unused slug, appending -2, -3, ... until the
// lookup misses.
func (s *GymService) freeSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "gym"
	}
	slug := base
	for i := 2; ; i++ {
		_, err := s.gyms.GetBySlug(ctx, slug)
		if errors.Is(err, repository.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
