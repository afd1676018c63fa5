package jni

import (
	stderrors "errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/attach"
	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/raw"
)

// VM is a handle to one embedded runtime. It is safe for concurrent use.
type VM struct {
	raw       raw.VM
	attach    *attach.Manager
	log       *zap.Logger
	observers []Observer

	// classes caches one durable class reference per type tag name,
	// methods the ids resolved through MethodOf.
	classes sync.Map
	methods sync.Map

	locals          atomic.Int64
	globals         atomic.Int64
	thrown          atomic.Uint64
	releaseFailures atomic.Uint64
	collected       atomic.Uint64
}

type options struct {
	logger    *zap.Logger
	observers []Observer
	daemon    bool
}

// Option configures a VM.
type Option func(*options)

// WithLogger sets the VM's logger. The package Logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithDaemon attaches threads as daemon threads.
func WithDaemon(daemon bool) Option {
	return func(o *options) { o.daemon = daemon }
}

// New wraps a runtime handle.
func New(rvm raw.VM, opts ...Option) (*VM, error) {
	if !rvm.Valid() {
		return nil, errors.InvalidInput(errors.PhaseLoad, "invalid runtime handle")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	vm := &VM{
		raw:       rvm,
		log:       o.logger,
		observers: o.observers,
	}
	vm.attach = attach.NewManager(rvm,
		attach.WithObserver(attachObserver{vm: vm}),
		attach.WithDaemon(o.daemon),
	)
	return vm, nil
}

// Loader produces the process runtime for Default.
type Loader func() (raw.VM, error)

var (
	loaderMu   sync.Mutex
	loaderFn   Loader
	loaderOpts []Option
)

// RegisterLoader installs the function Default uses to obtain the process
// runtime. It must be called before the first call to Default; the cgo
// backend registers itself from init.
func RegisterLoader(fn Loader, opts ...Option) {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	loaderFn = fn
	loaderOpts = opts
}

var defaultVM = sync.OnceValues(func() (*VM, error) {
	loaderMu.Lock()
	fn, opts := loaderFn, loaderOpts
	loaderMu.Unlock()

	if fn == nil {
		return nil, errors.NotInitialized(errors.PhaseLoad, "runtime loader")
	}
	rvm, err := fn()
	if err != nil {
		return nil, errors.Load("couldn't load runtime", err)
	}
	vm, err := New(rvm, opts...)
	if err != nil {
		return nil, err
	}
	vm.log.Info("runtime loaded", zap.Stringer("vm", rvm))
	return vm, nil
})

// Default returns the process runtime, loading it on first use. The result,
// including a failure, is computed once.
func Default() (*VM, error) {
	return defaultVM()
}

// With runs fn in a call scope on the process runtime.
func With(fn func(env *Env) error) error {
	vm, err := Default()
	if err != nil {
		return err
	}
	return vm.With(fn)
}

// Raw returns the underlying runtime handle.
func (vm *VM) Raw() raw.VM {
	return vm.raw
}

// With runs fn in a call scope on the current thread. The thread is attached
// for the scope unless it is permanently attached already.
//
// Every local reference still alive when fn returns is deleted before the
// scope ends. Thrown errors anywhere in fn's error chain are promoted to
// global references first, so the returned error stays usable. A promotion
// that fails is joined to the returned error, typically as
// errors.KindExhausted.
//
// Calling With from inside fn on the same thread fails with
// errors.KindNestedUsage; the outer scope is unaffected.
func (vm *VM) With(fn func(env *Env) error) (err error) {
	g, err := vm.attach.Acquire()
	if err != nil {
		return err
	}

	env := newEnv(vm, g)
	defer func() {
		env.close()
		if rerr := g.Release(); rerr != nil {
			err = stderrors.Join(err, rerr)
		}
	}()

	if err = fn(env); err != nil {
		if perr := env.promote(err); perr != nil {
			err = stderrors.Join(err, perr)
		}
	}
	return err
}

// AttachPermanently attaches the current thread until DetachCurrentThread.
// The calling goroutine stays locked to its OS thread for that time, and
// every With on it reuses the attachment.
//
// The goroutine must call DetachCurrentThread before it exits. A thread that
// dies attached is never detached from the runtime; its bookkeeping is only
// dropped when Threads notices the thread is gone, or when a later With finds
// the runtime no longer recognizes the stored environment.
func (vm *VM) AttachPermanently() error {
	g, err := vm.attach.AcquirePermanent()
	if err != nil {
		return err
	}
	return g.Release()
}

// DetachCurrentThread ends a permanent attachment of the current thread. It
// fails with errors.KindNestedUsage inside a call scope and does nothing for
// a thread that is not permanently attached.
func (vm *VM) DetachCurrentThread() error {
	return vm.attach.Detach()
}

// Threads reports the attachment state of every thread the VM knows about.
func (vm *VM) Threads() []attach.ThreadState {
	return vm.attach.Snapshot()
}

// Stats is a snapshot of the VM's reference accounting.
type Stats struct {
	LiveLocals      int64
	LiveGlobals     int64
	Thrown          uint64
	ReleaseFailures uint64
	Collected       uint64
}

// Stats returns the current counters.
func (vm *VM) Stats() Stats {
	return Stats{
		LiveLocals:      vm.locals.Load(),
		LiveGlobals:     vm.globals.Load(),
		Thrown:          vm.thrown.Load(),
		ReleaseFailures: vm.releaseFailures.Load(),
		Collected:       vm.collected.Load(),
	}
}

// ClearClassCache releases the class references cached by ClassOf and
// forgets cached method ids.
//
// It is only safe while no With scope is running on any thread: views
// returned by ClassOf and method ids looked up through the cache become
// invalid immediately, including ones a running scope still holds.
func (vm *VM) ClearClassCache() {
	vm.methods.Clear()
	vm.classes.Range(func(key, value any) bool {
		vm.classes.Delete(key)
		value.(*Global[lang.Class]).Release()
		return true
	})
}
