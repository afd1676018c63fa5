package attach

import (
	stderrors "errors"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/raw"
)

// Manager tracks the attachment state of every OS thread that has called
// into one runtime.
//
// The calling goroutine is locked to its OS thread from Acquire until the
// returned Guard is released, and for the whole life of a permanent
// attachment.
type Manager struct {
	vm       raw.VM
	states   map[int64]State
	observer Observer
	mu       sync.Mutex
	daemon   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver reports transitions to o.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithDaemon attaches threads as daemon threads.
func WithDaemon(daemon bool) Option {
	return func(m *Manager) { m.daemon = daemon }
}

// NewManager creates a Manager for vm.
func NewManager(vm raw.VM, opts ...Option) *Manager {
	m := &Manager{
		vm:     vm,
		states: make(map[int64]State),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// VM returns the runtime this manager attaches to.
func (m *Manager) VM() raw.VM {
	return m.vm
}

// Acquire enters a call scope on the current thread. If the thread is
// permanently attached its environment is reused; otherwise the thread is
// attached for the duration of the scope.
func (m *Manager) Acquire() (*Guard, error) {
	return m.acquire(false)
}

// AcquirePermanent is Acquire, except that a thread attached here stays
// attached after the guard is released, until Detach. The goroutine must call
// Detach before it exits; the runtime is never told about a thread that dies
// attached. A later Acquire on a reused thread id, or after the runtime has
// dropped the thread, attaches afresh instead of reusing the stale entry.
func (m *Manager) AcquirePermanent() (*Guard, error) {
	return m.acquire(true)
}

func (m *Manager) acquire(permanent bool) (*Guard, error) {
	runtime.LockOSThread()
	tid := osthread.ID()

	m.mu.Lock()
	prev := m.states[tid]
	if prev.Kind == InUse {
		m.mu.Unlock()
		runtime.UnlockOSThread()
		m.emit(Event{Thread: tid, Type: EventNestedUsage})
		return nil, errors.NestedUsage(errors.PhaseAttach)
	}
	m.states[tid] = State{Kind: InUse, Env: prev.Env, Permanent: prev.Permanent, External: prev.External}
	m.mu.Unlock()

	if prev.Kind == Attached {
		if m.current(prev.Env) {
			m.emit(Event{Thread: tid, Type: EventReentered, Permanent: true})
			return &Guard{m: m, thread: tid, env: prev.Env, permanent: true, external: prev.External}, nil
		}
		// The runtime no longer knows this environment, or tid now names a
		// different thread. The entry is replaced below.
		Logger().Debug("dropping stale attachment", zap.Int64("thread", tid), zap.Stringer("env", prev.Env))
	}

	env, external, err := m.attachThread()
	if err != nil {
		m.mu.Lock()
		delete(m.states, tid)
		m.mu.Unlock()
		runtime.UnlockOSThread()
		Logger().Debug("attach failed", zap.Int64("thread", tid), zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.states[tid] = State{Kind: InUse, Env: env, Permanent: permanent, External: external}
	m.mu.Unlock()

	if permanent {
		// Held until Detach; the guard's own lock is released with the guard.
		runtime.LockOSThread()
	}

	typ := EventAttached
	if external {
		typ = EventAdopted
	}
	m.emit(Event{Thread: tid, Type: typ, Permanent: permanent})
	Logger().Debug("thread attached",
		zap.Int64("thread", tid),
		zap.Bool("permanent", permanent),
		zap.Bool("external", external))

	return &Guard{m: m, thread: tid, env: env, permanent: permanent, external: external}, nil
}

// current reports whether env is still the runtime's environment for the
// calling thread.
func (m *Manager) current(env raw.Env) bool {
	cur, attached, err := m.vm.GetEnv()
	return err == nil && attached && cur.Addr() == env.Addr()
}

func (m *Manager) attachThread() (raw.Env, bool, error) {
	env, attached, err := m.vm.GetEnv()
	if err != nil {
		return raw.Env{}, false, err
	}
	if attached {
		return env, true, nil
	}
	if m.daemon {
		env, err = m.vm.AttachThreadAsDaemon()
	} else {
		env, err = m.vm.AttachThread()
	}
	return env, false, err
}

// Detach ends the permanent attachment of the current thread. It is refused
// while a call scope is active on the thread, and is a no-op for a thread that
// is not permanently attached. Attachments made by someone else are forgotten
// but left in place.
func (m *Manager) Detach() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	tid := osthread.ID()

	m.mu.Lock()
	st := m.states[tid]
	switch st.Kind {
	case InUse:
		m.mu.Unlock()
		m.emit(Event{Thread: tid, Type: EventNestedUsage})
		return errors.NestedUsage(errors.PhaseDetach)
	case Detached:
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if !st.External {
		if err := m.vm.DetachThread(); err != nil {
			return err
		}
		m.emit(Event{Thread: tid, Type: EventDetached, Permanent: true})
	}

	m.mu.Lock()
	delete(m.states, tid)
	m.mu.Unlock()

	// Balances the lock taken when the permanent attachment was made.
	runtime.UnlockOSThread()
	Logger().Debug("permanent attachment ended", zap.Int64("thread", tid), zap.Bool("external", st.External))
	return nil
}

// Borrow calls fn with some valid environment for the current thread without
// entering a call scope. It is the path used to release durable references,
// which may happen on any thread and inside or outside a scope. A thread that
// is not attached at all is attached for the duration of fn.
func (m *Manager) Borrow(fn func(raw.Env) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	tid := osthread.ID()

	m.mu.Lock()
	st := m.states[tid]
	m.mu.Unlock()
	switch {
	case st.Kind == InUse && st.Env.Valid():
		return fn(st.Env)
	case st.Kind == Attached && !m.current(st.Env):
		m.set(tid, State{})
	}

	env, attached, err := m.vm.GetEnv()
	if err != nil {
		return err
	}
	if attached {
		return fn(env)
	}

	env, err = m.vm.AttachThreadAsDaemon()
	if err != nil {
		return err
	}
	m.emit(Event{Thread: tid, Type: EventBorrowed})
	ferr := fn(env)
	derr := m.vm.DetachThread()
	return stderrors.Join(ferr, derr)
}

// Current returns the state of the calling thread.
func (m *Manager) Current() State {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	tid := osthread.ID()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[tid]
}

// Snapshot returns the state of every thread the manager knows about,
// ordered by thread id. Entries of threads that no longer exist are dropped.
func (m *Manager) Snapshot() []ThreadState {
	m.mu.Lock()
	out := make([]ThreadState, 0, len(m.states))
	for tid, st := range m.states {
		if !osthread.Alive(tid) {
			delete(m.states, tid)
			Logger().Debug("dropping attachment of exited thread", zap.Int64("thread", tid), zap.Stringer("kind", st.Kind))
			continue
		}
		out = append(out, ThreadState{Thread: tid, State: st})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Thread < out[j].Thread })
	return out
}

func (m *Manager) set(tid int64, st State) {
	m.mu.Lock()
	if st.Kind == Detached {
		delete(m.states, tid)
	} else {
		m.states[tid] = st
	}
	m.mu.Unlock()
}

func (m *Manager) emit(e Event) {
	if m.observer != nil {
		m.observer.OnAttachEvent(e)
	}
}

// Guard is an active call scope on one thread.
type Guard struct {
	m         *Manager
	env       raw.Env
	thread    int64
	permanent bool
	external  bool
	released  bool
}

// Env returns the environment for the scope.
func (g *Guard) Env() raw.Env {
	return g.env
}

// Thread returns the id of the thread the scope runs on.
func (g *Guard) Thread() int64 {
	return g.thread
}

// Permanent reports whether the thread stays attached after Release.
func (g *Guard) Permanent() bool {
	return g.permanent
}

// External reports whether the thread was attached by someone else.
func (g *Guard) External() bool {
	return g.external
}

// Release leaves the call scope. A permanent attachment returns to Attached;
// a transient one is detached unless it was external. Release must run on the
// guard's thread and is idempotent.
func (g *Guard) Release() error {
	if g.released {
		return nil
	}
	if tid := osthread.ID(); tid != g.thread {
		return errors.WrongThread(errors.PhaseDetach, g.thread, tid)
	}
	g.released = true
	defer runtime.UnlockOSThread()

	if g.permanent {
		g.m.set(g.thread, State{Kind: Attached, Env: g.env, Permanent: true, External: g.external})
		return nil
	}

	var err error
	if !g.external {
		err = g.m.vm.DetachThread()
		if err == nil {
			g.m.emit(Event{Thread: g.thread, Type: EventDetached})
		} else {
			Logger().Warn("couldn't detach thread", zap.Int64("thread", g.thread), zap.Error(err))
		}
	}
	g.m.set(g.thread, State{})
	return err
}
