package simjvm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/internal/osthread"
	"github.com/wippyai/jvm-bridge/raw"
	"github.com/wippyai/jvm-bridge/resource"
)

// Address ranges handed out by the simulator. Keeping them disjoint lets a
// reference be classified from its address alone.
const (
	vmAddr     uintptr = 0x0800_0000
	localBase  uintptr = 0x1000_0000
	globalBase uintptr = 0x4000_0000
	methodBase uintptr = 0x6000_0000
	envBase    uintptr = 0x7000_0000
)

const defaultLocalCapacity = 1024

// Config controls the simulated runtime.
type Config struct {
	// LocalCapacity is the number of live local references one environment
	// may hold. Zero means the default of 1024.
	LocalCapacity int
	// GlobalCapacity bounds live global references. Zero means unbounded.
	GlobalCapacity int
	// SilentExhaustion makes a full reference table return null without
	// throwing OutOfMemoryError.
	SilentExhaustion bool
}

// Option configures a Runtime.
type Option func(*Config)

// WithLocalCapacity sets the per-environment local reference capacity.
func WithLocalCapacity(n int) Option {
	return func(c *Config) { c.LocalCapacity = n }
}

// WithGlobalCapacity sets the global reference capacity.
func WithGlobalCapacity(n int) Option {
	return func(c *Config) { c.GlobalCapacity = n }
}

// WithSilentExhaustion disables the OutOfMemoryError thrown when a reference
// table is full.
func WithSilentExhaustion() Option {
	return func(c *Config) { c.SilentExhaustion = true }
}

type thread struct {
	pending  *Object
	tid      int64
	env      uintptr
	locals   int
	daemon   bool
	external bool
}

// Runtime is an in-process stand-in for an embedded managed runtime. It
// implements the raw function tables over a small object heap with
// Go-implemented classes, per-thread environments and bounded reference
// tables, and records every contract violation it observes.
type Runtime struct {
	vmFns  raw.VMFuncs
	envFns raw.EnvFuncs
	vm     raw.VM

	objects map[uint64]*Object
	classes map[string]*Class
	methods map[uintptr]*Method
	threads map[int64]*thread
	envs    map[uintptr]*thread

	locals  *resource.Table[uint64]
	globals *resource.Table[uint64]

	violations []Violation
	cfg        Config

	nextObject uint64
	nextMethod uintptr
	nextEnv    uintptr

	failAttach int
	failDetach int
	badStrings int

	attaches       atomic.Uint64
	detaches       atomic.Uint64
	calls          atomic.Uint64
	thrown         atomic.Uint64
	localsCreated  atomic.Uint64
	localsDeleted  atomic.Uint64
	globalsCreated atomic.Uint64
	globalsDeleted atomic.Uint64

	mu sync.Mutex
}

// New creates a runtime with the built-in classes defined.
func New(opts ...Option) *Runtime {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.LocalCapacity <= 0 {
		cfg.LocalCapacity = defaultLocalCapacity
	}

	rt := &Runtime{
		cfg:     cfg,
		objects: make(map[uint64]*Object),
		classes: make(map[string]*Class),
		methods: make(map[uintptr]*Method),
		threads: make(map[int64]*thread),
		envs:    make(map[uintptr]*thread),
		locals:  resource.NewTable[uint64](0),
		globals: resource.NewTable[uint64](cfg.GlobalCapacity),
	}

	rt.locals.Subscribe(counter(&rt.localsCreated, &rt.localsDeleted))
	rt.globals.Subscribe(counter(&rt.globalsCreated, &rt.globalsDeleted))

	rt.bindEnvFuncs()
	rt.vmFns = raw.VMFuncs{
		GetEnv:                      rt.getEnv,
		AttachCurrentThread:         func(vm uintptr) (uintptr, int32) { return rt.attach(vm, false) },
		AttachCurrentThreadAsDaemon: func(vm uintptr) (uintptr, int32) { return rt.attach(vm, true) },
		DetachCurrentThread:         rt.detach,
		Env:                         &rt.envFns,
	}
	vm, ok := raw.NewVM(vmAddr, &rt.vmFns)
	if !ok {
		panic("simjvm: invalid vm handle")
	}
	rt.vm = vm

	for _, def := range builtins() {
		if _, err := rt.Define(def); err != nil {
			panic(fmt.Sprintf("simjvm: builtin %s: %v", def.Name, err))
		}
	}
	return rt
}

func counter(created, dropped *atomic.Uint64) resource.Observer {
	return resource.ObserverFunc(func(e resource.Event) {
		switch e.Type {
		case resource.EventCreated:
			created.Add(1)
		case resource.EventDropped:
			dropped.Add(1)
		}
	})
}

// VM returns the runtime handle.
func (rt *Runtime) VM() raw.VM {
	return rt.vm
}

// Load satisfies jni.Loader.
func (rt *Runtime) Load() (raw.VM, error) {
	return rt.vm, nil
}

func (rt *Runtime) getEnv(vm uintptr, version int32) (uintptr, int32) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.checkVM(vm, "GetEnv") {
		return 0, raw.StatusErr
	}
	if version < 0x00010001 {
		return 0, raw.StatusVersion
	}
	if th := rt.threads[osthread.ID()]; th != nil {
		return th.env, raw.StatusOK
	}
	return 0, raw.StatusDetached
}

func (rt *Runtime) attach(vm uintptr, daemon bool) (uintptr, int32) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.checkVM(vm, "AttachCurrentThread") {
		return 0, raw.StatusErr
	}
	tid := osthread.ID()
	if th := rt.threads[tid]; th != nil {
		return th.env, raw.StatusOK
	}
	if rt.failAttach > 0 {
		rt.failAttach--
		return 0, raw.StatusErr
	}
	th := rt.newThread(tid)
	th.daemon = daemon
	rt.attaches.Add(1)
	Logger().Debug("thread attached", zap.Int64("thread", tid), zap.Bool("daemon", daemon))
	return th.env, raw.StatusOK
}

func (rt *Runtime) detach(vm uintptr) int32 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.checkVM(vm, "DetachCurrentThread") {
		return raw.StatusErr
	}
	if rt.failDetach > 0 {
		rt.failDetach--
		return raw.StatusErr
	}
	th := rt.threads[osthread.ID()]
	if th == nil {
		return raw.StatusOK
	}
	rt.dropThread(th)
	rt.detaches.Add(1)
	Logger().Debug("thread detached", zap.Int64("thread", th.tid))
	return raw.StatusOK
}

func (rt *Runtime) newThread(tid int64) *thread {
	rt.nextEnv++
	th := &thread{tid: tid, env: envBase + rt.nextEnv*0x10}
	rt.threads[tid] = th
	rt.envs[th.env] = th
	return th
}

func (rt *Runtime) dropThread(th *thread) {
	if th.locals > 0 {
		rt.violate(ViolationLeakedLocals, th, "%d local references outstanding at detach", th.locals)
	}
	rt.locals.RemoveOwner(uint64(th.env))
	delete(rt.threads, th.tid)
	delete(rt.envs, th.env)
}

func (rt *Runtime) checkVM(vm uintptr, op string) bool {
	if vm != vmAddr {
		rt.violate(ViolationBadHandle, nil, "%s through unknown vm %#x", op, vm)
		return false
	}
	return true
}

// AttachExternally attaches the calling thread the way foreign native code
// would, without going through the bridge. The caller must be locked to its
// OS thread.
func (rt *Runtime) AttachExternally() uintptr {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	tid := osthread.ID()
	if th := rt.threads[tid]; th != nil {
		return th.env
	}
	th := rt.newThread(tid)
	th.external = true
	return th.env
}

// DetachExternally undoes AttachExternally.
func (rt *Runtime) DetachExternally() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if th := rt.threads[osthread.ID()]; th != nil {
		rt.dropThread(th)
	}
}

// FailNextAttach makes the next n attach calls fail with a generic error.
func (rt *Runtime) FailNextAttach(n int) {
	rt.mu.Lock()
	rt.failAttach = n
	rt.mu.Unlock()
}

// FailNextDetach makes the next n detach calls fail with a generic error.
func (rt *Runtime) FailNextDetach(n int) {
	rt.mu.Lock()
	rt.failDetach = n
	rt.mu.Unlock()
}

// CorruptNextString makes the next n string reads fail the way a runtime
// handing back undecodable characters does: no result and nothing pending.
func (rt *Runtime) CorruptNextString(n int) {
	rt.mu.Lock()
	rt.badStrings = n
	rt.mu.Unlock()
}

// IsAttached reports whether the thread with the given id is attached.
func (rt *Runtime) IsAttached(tid int64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.threads[tid] != nil
}

// Stats is a point-in-time view of the runtime's counters.
type Stats struct {
	Objects        int
	Classes        int
	Threads        int
	LiveLocals     int
	LiveGlobals    int
	Attaches       uint64
	Detaches       uint64
	Calls          uint64
	Thrown         uint64
	LocalsCreated  uint64
	LocalsDeleted  uint64
	GlobalsCreated uint64
	GlobalsDeleted uint64
}

// Stats returns the current counters.
func (rt *Runtime) Stats() Stats {
	rt.mu.Lock()
	s := Stats{
		Objects: len(rt.objects),
		Classes: len(rt.classes),
		Threads: len(rt.threads),
	}
	rt.mu.Unlock()

	s.LiveLocals = rt.locals.Len()
	s.LiveGlobals = rt.globals.Len()
	s.Attaches = rt.attaches.Load()
	s.Detaches = rt.detaches.Load()
	s.Calls = rt.calls.Load()
	s.Thrown = rt.thrown.Load()
	s.LocalsCreated = rt.localsCreated.Load()
	s.LocalsDeleted = rt.localsDeleted.Load()
	s.GlobalsCreated = rt.globalsCreated.Load()
	s.GlobalsDeleted = rt.globalsDeleted.Load()
	return s
}

// LocalRefCount returns the number of live local references held by env.
func (rt *Runtime) LocalRefCount(env uintptr) int {
	return rt.locals.CountOwner(uint64(env))
}

// GlobalRefCount returns the number of live global references to o.
func (rt *Runtime) GlobalRefCount(o *Object) int {
	if o == nil {
		return 0
	}
	n := 0
	rt.globals.Each(func(_ resource.Handle, _ uint64, id uint64) bool {
		if id == o.ID {
			n++
		}
		return true
	})
	return n
}

// ObjectAt resolves a live local or global reference without any thread
// checks. It is meant for test assertions.
func (rt *Runtime) ObjectAt(ref uintptr) (*Object, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id, ok := rt.refID(ref)
	if !ok {
		return nil, false
	}
	o := rt.objects[id]
	return o, o != nil
}

// Violations returns every contract violation recorded so far.
func (rt *Runtime) Violations() []Violation {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]Violation(nil), rt.violations...)
}

// ResetViolations forgets recorded violations.
func (rt *Runtime) ResetViolations() {
	rt.mu.Lock()
	rt.violations = nil
	rt.mu.Unlock()
}

func (rt *Runtime) violate(kind ViolationKind, th *thread, format string, args ...any) {
	v := Violation{
		Kind:   kind,
		Thread: osthread.ID(),
		Detail: fmt.Sprintf(format, args...),
	}
	if th != nil {
		v.Env = th.env
	}
	rt.violations = append(rt.violations, v)
	Logger().Warn("contract violation",
		zap.Stringer("kind", kind),
		zap.Int64("thread", v.Thread),
		zap.String("detail", v.Detail))
}
