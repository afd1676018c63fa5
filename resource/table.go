package resource

import (
	"sync"
)

// Table maps handles to values with per-slot owner tracking and an optional
// capacity. It is safe for concurrent use.
type Table[T any] struct {
	slots     slots[T]
	observers []Observer
	capacity  int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates a table holding at most capacity live slots.
// A capacity of zero or less means unbounded.
func NewTable[T any](capacity int) *Table[T] {
	return &Table[T]{
		slots:    newSlots[T](),
		capacity: capacity,
	}
}

// Insert stores value on behalf of owner and returns its handle.
func (t *Table[T]) Insert(owner uint64, value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	if t.capacity > 0 && t.slots.live >= t.capacity {
		t.mu.Unlock()
		return 0, ErrFull
	}
	handle := t.slots.create(owner, value)
	t.mu.Unlock()

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Owner:  owner,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(handle Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.slots.lookup(handle); e != nil {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Owner returns the owner recorded for handle.
func (t *Table[T]) Owner(handle Handle) (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.slots.lookup(handle); e != nil {
		return e.owner, true
	}
	return 0, false
}

// Remove drops a slot and returns (value, true) if it was live.
func (t *Table[T]) Remove(handle Handle) (T, bool) {
	t.mu.Lock()
	e, ok := t.slots.drop(handle)
	t.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Owner:  e.owner,
		Value:  e.value,
	})

	return e.value, true
}

// RemoveOwner drops every slot held by owner and returns their handles.
func (t *Table[T]) RemoveOwner(owner uint64) []Handle {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.mu.RLock()
	t.slots.each(func(h Handle, o uint64, _ T) bool {
		if o == owner {
			handles = append(handles, h)
		}
		return true
	})
	t.mu.RUnlock()

	for _, h := range handles {
		t.Remove(h)
	}
	return handles
}

// Len returns the number of live slots.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots.live
}

// CountOwner returns the number of live slots held by owner.
func (t *Table[T]) CountOwner(owner uint64) int {
	n := 0
	t.Each(func(_ Handle, o uint64, _ T) bool {
		if o == owner {
			n++
		}
		return true
	})
	return n
}

// Capacity returns the configured capacity, zero when unbounded.
func (t *Table[T]) Capacity() int {
	if t.capacity < 0 {
		return 0
	}
	return t.capacity
}

// Each iterates over all live slots until fn returns false.
// fn must not modify the table.
func (t *Table[T]) Each(fn func(Handle, uint64, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.slots.each(fn)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close drops all slots and stops accepting inserts. No events are sent for
// slots dropped by Close.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.slots.reset()
	return nil
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
