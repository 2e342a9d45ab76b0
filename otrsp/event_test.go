package otrsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadsbrown/otrsp/logger"
)

func newTestBus(bufSize int) *EventBus {
	return NewEventBus(bufSize, logger.GetLogger())
}

func TestEventBusDelivery(t *testing.T) {
	bus := newTestBus(8)
	defer bus.Close()

	sub1 := bus.Subscribe()
	sub2 := bus.Subscribe()

	bus.Publish(SwitchEvent{Type: EventTxChanged, Radio: Radio2})

	for _, sub := range []*Subscription{sub1, sub2} {
		ev := <-sub.Events()
		assert.Equal(t, EventTxChanged, ev.Type)
		assert.Equal(t, Radio2, ev.Radio)
	}
}

func TestEventBusSubscribeFromNowForward(t *testing.T) {
	bus := newTestBus(8)
	defer bus.Close()

	bus.Publish(SwitchEvent{Type: EventConnected})

	sub := bus.Subscribe()
	bus.Publish(SwitchEvent{Type: EventAuxChanged, Port: 1, Value: 4})

	// The subscriber must only observe events published after it registered.
	ev := <-sub.Events()
	assert.Equal(t, EventAuxChanged, ev.Type)
	assert.Equal(t, uint8(1), ev.Port)
	assert.Equal(t, uint8(4), ev.Value)
}

func TestEventBusDropOldestOnLag(t *testing.T) {
	bus := newTestBus(2)
	defer bus.Close()

	sub := bus.Subscribe()

	// Publish four AUX events into a buffer of two without consuming.
	for v := uint8(1); v <= 4; v++ {
		bus.Publish(SwitchEvent{Type: EventAuxChanged, Port: 1, Value: v})
	}

	assert.Equal(t, uint64(2), sub.Dropped())

	// The two newest events survived.
	ev := <-sub.Events()
	assert.Equal(t, uint8(3), ev.Value)
	ev = <-sub.Events()
	assert.Equal(t, uint8(4), ev.Value)
}

func TestEventBusSlowSubscriberNeverBlocksProducer(t *testing.T) {
	bus := newTestBus(1)
	defer bus.Close()

	_ = bus.Subscribe() // never consumed

	// Must return promptly no matter how many events are published.
	for i := 0; i < 1000; i++ {
		bus.Publish(SwitchEvent{Type: EventTxChanged, Radio: Radio1})
	}
}

func TestEventBusSubscriptionClose(t *testing.T) {
	bus := newTestBus(4)
	defer bus.Close()

	sub := bus.Subscribe()
	sub.Close()
	sub.Close() // idempotent

	// Publishing after the subscription closed must not panic.
	bus.Publish(SwitchEvent{Type: EventConnected})

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestEventBusClose(t *testing.T) {
	bus := newTestBus(4)

	sub := bus.Subscribe()

	bus.Publish(SwitchEvent{Type: EventConnected})
	bus.Close()
	bus.Close() // idempotent

	// Buffered events are still delivered, then the channel closes.
	ev, ok := <-sub.Events()
	require.True(t, ok)
	assert.Equal(t, EventConnected, ev.Type)

	_, ok = <-sub.Events()
	assert.False(t, ok)

	// Subscribing after close yields an already-closed channel.
	late := bus.Subscribe()
	_, ok = <-late.Events()
	assert.False(t, ok)
}
