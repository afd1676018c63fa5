package resource

// slots is the free-listed storage behind a Table. It is not safe for
// concurrent use; Table serializes access.
type slots[T any] struct {
	entries  []entry[T]
	freeList []Handle
	live     int
}

type entry[T any] struct {
	value T
	owner uint64
	valid bool
}

func newSlots[T any]() slots[T] {
	return slots[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *slots[T]) create(owner uint64, value T) Handle {
	e := entry[T]{
		value: value,
		owner: owner,
		valid: true,
	}
	s.live++

	if len(s.freeList) > 0 {
		handle := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
		return handle
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries))
}

func (s *slots[T]) lookup(handle Handle) *entry[T] {
	if handle == 0 {
		return nil
	}
	idx := handle - 1
	if int(idx) >= len(s.entries) {
		return nil
	}
	e := &s.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}

func (s *slots[T]) drop(handle Handle) (entry[T], bool) {
	e := s.lookup(handle)
	if e == nil {
		return entry[T]{}, false
	}

	out := *e
	var zero T
	e.valid = false
	e.value = zero
	e.owner = 0
	s.live--
	s.freeList = append(s.freeList, handle)

	return out, true
}

func (s *slots[T]) each(fn func(Handle, uint64, T) bool) {
	for i, e := range s.entries {
		if e.valid {
			if !fn(Handle(i+1), e.owner, e.value) {
				break
			}
		}
	}
}

func (s *slots[T]) reset() {
	s.entries = nil
	s.freeList = nil
	s.live = 0
}
