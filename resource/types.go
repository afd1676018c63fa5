package resource

import "errors"

// Handle is an opaque slot index in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

var (
	ErrClosed = errors.New("resource table closed")
	ErrFull   = errors.New("resource table full")
)

// Event types for slot lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents a slot lifecycle event.
type Event struct {
	Value  any
	Owner  uint64
	Handle Handle
	Type   EventType
}

// Observer receives notifications about slot lifecycle events.
// It is called with the table's lock released.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }
