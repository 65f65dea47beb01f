package guard

import (
	"context"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/tenant"
)

type SlugDecision int

const (
	// SlugBound: the slug matches the resolver's active gym.
	SlugBound SlugDecision = iota
	// SlugPending: a selection was triggered; hold the route until the
	// resolver converges. Convergence takes exactly one Select call, so
	// the caller re-evaluates once, not in a loop.
	SlugPending
	// SlugRedirectSelect: no available gym carries this slug.
	SlugRedirectSelect
)

// BindSlug resolves a URL gym slug against the resolver's available gyms.
// When the slug names an available gym that is not the active one, the
// resolver is switched and the route held pending so tenant-scoped data is
// never rendered for the wrong gym.
func BindSlug(ctx context.Context, resolver *tenant.Resolver, slug string) (SlugDecision, *domain.Gym) {
	var match *domain.Gym
	for _, g := range resolver.Available() {
		if g.Slug == slug {
			match = g
			break
		}
	}
	if match == nil {
		return SlugRedirectSelect, nil
	}

	current := resolver.Current()
	if current != nil && current.ID == match.ID {
		return SlugBound, match
	}

	resolver.Select(ctx, match.ID.String())
	return SlugPending, match
}
