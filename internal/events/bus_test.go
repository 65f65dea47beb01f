package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBus_FilteredDelivery(t *testing.T) {
	bus := NewBus()
	target := uuid.New()
	other := uuid.New()

	var got []Event
	bus.Subscribe(func(e Event) bool { return e.IsProfile() && e.ID == target }, func(e Event) {
		got = append(got, e)
	})

	bus.Publish(Event{Kind: KindProfileUpdated, ID: target})
	bus.Publish(Event{Kind: KindProfileUpdated, ID: other})
	bus.Publish(Event{Kind: KindGymUpdated, ID: target})

	if assert.Len(t, got, 1) {
		assert.Equal(t, KindProfileUpdated, got[0].Kind)
		assert.Equal(t, target, got[0].ID)
		assert.False(t, got[0].At.IsZero())
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	count := 0
	cancel := bus.Subscribe(nil, func(Event) { count++ })

	bus.Publish(Event{Kind: KindGymCreated, ID: uuid.New()})
	cancel()
	cancel() // second call is a no-op
	bus.Publish(Event{Kind: KindGymCreated, ID: uuid.New()})

	assert.Equal(t, 1, count)
}

func TestBus_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	count := 0
	var cancel func()
	cancel = bus.Subscribe(nil, func(Event) {
		count++
		cancel()
	})

	bus.Publish(Event{Kind: KindProfileCreated, ID: uuid.New()})
	bus.Publish(Event{Kind: KindProfileCreated, ID: uuid.New()})

	assert.Equal(t, 1, count)
}
