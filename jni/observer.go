package jni

import (
	"fmt"

	"github.com/wippyai/jvm-bridge/attach"
)

// EventType identifies a VM event.
type EventType uint8

const (
	// EventAttach reports a thread attachment transition; Attach says which.
	EventAttach EventType = iota
	EventLocalCreated
	EventLocalDeleted
	EventGlobalCreated
	EventGlobalDeleted
	// EventGlobalCollected reports a global released by the garbage
	// collector because it was never released explicitly.
	EventGlobalCollected
	EventThrown
	// EventReleaseFailed reports a reference that could not be deleted.
	EventReleaseFailed
)

func (t EventType) String() string {
	switch t {
	case EventAttach:
		return "attach"
	case EventLocalCreated:
		return "local_created"
	case EventLocalDeleted:
		return "local_deleted"
	case EventGlobalCreated:
		return "global_created"
	case EventGlobalDeleted:
		return "global_deleted"
	case EventGlobalCollected:
		return "global_collected"
	case EventThrown:
		return "thrown"
	case EventReleaseFailed:
		return "release_failed"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event is delivered to observers.
type Event struct {
	Err       error
	Thread    int64
	Type      EventType
	Attach    attach.EventType
	Permanent bool
}

// Observer receives VM events. It is called synchronously on the thread the
// event happened on and must not call back into the VM.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// attachObserver forwards attachment transitions to the VM's observers.
type attachObserver struct {
	vm *VM
}

func (o attachObserver) OnAttachEvent(e attach.Event) {
	o.vm.emit(Event{
		Type:      EventAttach,
		Attach:    e.Type,
		Thread:    e.Thread,
		Permanent: e.Permanent,
	})
}

func (vm *VM) emit(e Event) {
	for _, o := range vm.observers {
		o.OnEvent(e)
	}
}
