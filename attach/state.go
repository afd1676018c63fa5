package attach

import (
	"fmt"

	"github.com/wippyai/jvm-bridge/raw"
)

// Kind is the attachment state of one OS thread.
type Kind uint8

const (
	Detached Kind = iota
	Attached
	InUse
)

func (k Kind) String() string {
	switch k {
	case Detached:
		return "detached"
	case Attached:
		return "attached"
	case InUse:
		return "in_use"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// State is the per-thread record kept by a Manager.
//
// Env is set for Attached and for InUse once the runtime call that attached
// the thread has returned. External marks an attachment made by someone other
// than this package; such attachments are never detached here.
type State struct {
	Env       raw.Env
	Kind      Kind
	Permanent bool
	External  bool
}

// ThreadState pairs a thread id with its state, as reported by Snapshot.
type ThreadState struct {
	State
	Thread int64
}

// EventType identifies a transition reported to a Manager's observer.
type EventType uint8

const (
	// EventAttached is reported after the runtime attached a thread for us.
	EventAttached EventType = iota
	// EventAdopted is reported when a thread turned out to be attached already.
	EventAdopted
	// EventReentered is reported when a permanent attachment is reused.
	EventReentered
	// EventDetached is reported after the runtime detached a thread for us.
	EventDetached
	// EventNestedUsage is reported when an acquire is refused.
	EventNestedUsage
	// EventBorrowed is reported when Borrow had to attach transiently.
	EventBorrowed
)

func (t EventType) String() string {
	switch t {
	case EventAttached:
		return "attached"
	case EventAdopted:
		return "adopted"
	case EventReentered:
		return "reentered"
	case EventDetached:
		return "detached"
	case EventNestedUsage:
		return "nested_usage"
	case EventBorrowed:
		return "borrowed"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event describes one attachment transition.
type Event struct {
	Thread    int64
	Type      EventType
	Permanent bool
}

// Observer receives attachment transitions. Calls happen on the thread that
// caused the transition and must not call back into the Manager.
type Observer interface {
	OnAttachEvent(Event)
}
