package feed

import (
	"sync"

	"go.uber.org/multierr"
)

// EventType indicates the category of a feed event.
type EventType string

const (
	// EventReset fires when the cabinet announces a new game (player names message).
	EventReset EventType = "RESET"
	// EventKill fires when one character kills another.
	EventKill EventType = "KILL"
)

// Kill is the payload of an EventKill. Character ids are passed through
// unchecked; consumers validate them.
type Kill struct {
	By     int
	Killed int
	X      int
	Y      int
	// VictimType is the victim's form ("Worker", "Soldier", "Queen") when the
	// cabinet firmware reports it.
	VictimType string
}

// Event is a decoded feed message.
type Event struct {
	Type EventType
	Kill Kill
	Raw  string
}

// Handler reacts to a published event. A returned error is reported back to
// the publisher; it does not stop delivery to other handlers.
type Handler func(Event) error

type typedHandler struct {
	handle  int
	handler Handler
}

// Bus is a synchronous publish/subscribe hub filtered by event type.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType][]typedHandler
	nextHandle int
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]typedHandler),
	}
}

// Subscribe registers handler for eventType and returns a handle for Unsubscribe.
// Handlers of one type run in subscription order.
func (b *Bus) Subscribe(eventType EventType, handler Handler) int {
	if handler == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := b.nextHandle
	b.nextHandle++
	b.handlers[eventType] = append(b.handlers[eventType], typedHandler{handle: handle, handler: handler})
	return handle
}

// Unsubscribe removes the handler identified by handle.
func (b *Bus) Unsubscribe(handle int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for eventType, handlers := range b.handlers {
		for i := len(handlers) - 1; i >= 0; i-- {
			if handlers[i].handle == handle {
				b.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers event to every handler of its type on the calling
// goroutine and returns the combined handler errors.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	handlers := append([]typedHandler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	var err error
	for _, h := range handlers {
		err = multierr.Append(err, h.handler(event))
	}
	return err
}

// NewResetEvent creates a reset event.
func NewResetEvent() Event {
	return Event{Type: EventReset}
}

// NewKillEvent creates a kill event for the given character ids.
func NewKillEvent(by, killed int) Event {
	return Event{Type: EventKill, Kill: Kill{By: by, Killed: killed}}
}
