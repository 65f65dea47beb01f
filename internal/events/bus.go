// Package events carries the live update streams the identity layer reacts
// to: profile writes and gym writes arrive as independent, unordered events
// and every consumer re-evaluates on each one.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindProfileCreated Kind = "profile.created"
	KindProfileUpdated Kind = "profile.updated"
	KindProfileDeleted Kind = "profile.deleted"
	KindGymCreated     Kind = "gym.created"
	KindGymUpdated     Kind = "gym.updated"
	KindGymDeleted     Kind = "gym.deleted"
)

// Event identifies a changed record. Consumers re-read state themselves;
// no payload is carried so stale events cannot overwrite newer reads.
type Event struct {
	Kind Kind
	ID   uuid.UUID
	At   time.Time
}

// IsProfile reports whether the event belongs to the profile stream.
func (e Event) IsProfile() bool {
	return e.Kind == KindProfileCreated || e.Kind == KindProfileUpdated || e.Kind == KindProfileDeleted
}

// IsGym reports whether the event belongs to the gym stream.
func (e Event) IsGym() bool {
	return e.Kind == KindGymCreated || e.Kind == KindGymUpdated || e.Kind == KindGymDeleted
}

type Handler func(Event)

type subscription struct {
	filter func(Event) bool
	fn     Handler
}

// Bus is a minimal in-process publish/subscribe hub. Subscribe returns an
// unsubscribe func; a cancelled subscription never fires again.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers fn for every event matching filter. A nil filter
// matches everything. The returned func detaches the subscription and is
// safe to call more than once.
func (b *Bus) Subscribe(filter func(Event) bool, fn Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = subscription{filter: filter, fn: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every matching subscriber, synchronously,
// outside the bus lock so handlers may subscribe or unsubscribe.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter == nil || s.filter(e) {
			matched = append(matched, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range matched {
		fn(e)
	}
}
