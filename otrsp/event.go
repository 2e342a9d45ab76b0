package otrsp

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/chadsbrown/otrsp/logger"
)

// EventType discriminates SwitchEvent variants.
type EventType uint8

const (
	// EventConnected is emitted once when the connection becomes usable.
	EventConnected EventType = iota
	// EventDisconnected is emitted exactly once when the connection tears down.
	EventDisconnected
	// EventTxChanged is emitted when TX routing changes.
	EventTxChanged
	// EventRxChanged is emitted when RX audio routing changes.
	EventRxChanged
	// EventAuxChanged is emitted when an AUX output changes.
	EventAuxChanged
)

// String returns string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventTxChanged:
		return "tx-changed"
	case EventRxChanged:
		return "rx-changed"
	case EventAuxChanged:
		return "aux-changed"
	default:
		return "unknown"
	}
}

// SwitchEvent is an immutable connectivity or state-change notification.
//
// OTRSP devices send no unsolicited data, so TX/RX/AUX change events are
// library-generated transitions emitted when the corresponding command is
// accepted.
type SwitchEvent struct {
	Type EventType

	// Radio is set for EventTxChanged and EventRxChanged.
	Radio Radio
	// Mode is set for EventRxChanged.
	Mode RxMode
	// Port and Value are set for EventAuxChanged.
	Port  uint8
	Value uint8
	// Reason is set for EventDisconnected.
	Reason DisconnectReason
}

// EventBus broadcasts SwitchEvents from a single producer (the IO goroutine)
// to any number of subscribers.
//
// Publishing never blocks: each subscriber has a bounded buffer, and when a
// lagging subscriber's buffer is full the oldest event is dropped to make
// room for the newest.
type EventBus struct {
	subs    *xsync.MapOf[uint64, *Subscription]
	nextID  atomic.Uint64
	bufSize int
	closed  atomic.Bool
	logger  logger.Logger
}

// NewEventBus creates an EventBus whose subscribers buffer up to bufSize
// events each.
func NewEventBus(bufSize int, l logger.Logger) *EventBus {
	if bufSize < 1 {
		bufSize = 1
	}

	return &EventBus{
		subs:    xsync.NewMapOf[uint64, *Subscription](),
		bufSize: bufSize,
		logger:  l,
	}
}

// Subscribe registers a new subscriber that observes all events published
// from this point forward.
func (b *EventBus) Subscribe() *Subscription {
	sub := &Subscription{
		id:  b.nextID.Add(1),
		bus: b,
		ch:  make(chan SwitchEvent, b.bufSize),
	}

	if b.closed.Load() {
		close(sub.ch)
		sub.closed = true

		return sub
	}

	b.subs.Store(sub.id, sub)

	// A close that raced the registration above must not leave the
	// subscription open forever.
	if b.closed.Load() {
		if _, loaded := b.subs.LoadAndDelete(sub.id); loaded {
			sub.close()
		}
	}

	return sub
}

// Publish delivers ev to every current subscriber. It never blocks.
func (b *EventBus) Publish(ev SwitchEvent) {
	if b.closed.Load() {
		return
	}

	b.logger.Debug("otrsp: publish event", "type", ev.Type)

	b.subs.Range(func(_ uint64, sub *Subscription) bool {
		sub.publish(ev)

		return true
	})
}

// Close shuts the bus down and closes every subscriber's channel. Idempotent.
func (b *EventBus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.subs.Range(func(id uint64, sub *Subscription) bool {
		b.subs.Delete(id)
		sub.close()

		return true
	})
}

// Subscription is one subscriber's view of an EventBus.
type Subscription struct {
	id      uint64
	bus     *EventBus
	ch      chan SwitchEvent
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// Events returns the channel events are delivered on. The channel is closed
// when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan SwitchEvent {
	return s.ch
}

// Dropped returns the number of events dropped because this subscriber
// lagged behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the event channel. Idempotent.
func (s *Subscription) Close() {
	if _, loaded := s.bus.subs.LoadAndDelete(s.id); loaded {
		s.close()
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.ch)
}

// publish delivers ev, dropping the oldest buffered event if the subscriber
// has fallen behind.
func (s *Subscription) publish(ev SwitchEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- ev:
		return
	default:
	}

	// Buffer full: drop the oldest event, then retry once. The bus is
	// single-producer and this section is serialized per subscriber, so
	// the retry cannot fail.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}

	select {
	case s.ch <- ev:
	default:
	}
}
