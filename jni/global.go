package jni

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/raw"
)

// globalState is the reference itself. It must not point back at its
// globalRef, or the cleanup attached to the globalRef would never run.
type globalState struct {
	vm       *VM
	obj      raw.Object
	class    string
	released atomic.Bool
}

// globalRef is shared by a Global and all its upcasts; the safety-net cleanup
// hangs off it, so it runs only once none of them is reachable.
type globalRef struct {
	st      *globalState
	cleanup runtime.Cleanup
}

// Global is a durable reference to an object of class T. It may be used
// from any thread and any scope of its VM, and stays valid until Release.
//
// A Global that becomes unreachable without Release is released by the
// garbage collector and reported as EventGlobalCollected; relying on that is
// a leak of runtime memory for an unbounded time.
type Global[T Type] struct {
	ref *globalRef
}

func newGlobal[T Type](vm *VM, obj raw.Object) *Global[T] {
	st := &globalState{vm: vm, obj: obj, class: className[T]()}
	ref := &globalRef{st: st}
	ref.cleanup = runtime.AddCleanup(ref, (*globalState).collect, st)

	vm.globals.Add(1)
	vm.emit(Event{Type: EventGlobalCreated})
	return &Global[T]{ref: ref}
}

func globalFrom[T Type](env *Env, obj raw.Object) (*Global[T], error) {
	addr := raw.Invoke(env.raw,
		func(t *raw.EnvFuncs) func(uintptr, uintptr) uintptr { return t.NewGlobalRef },
		func(e uintptr, f func(uintptr, uintptr) uintptr) uintptr { return f(e, obj.Addr()) },
	)
	g, ok := raw.NewObject(addr)
	if !ok {
		return nil, env.exhausted("NewGlobalRef")
	}
	return newGlobal[T](env.vm, g), nil
}

func (g *Global[T]) check(phase errors.Phase) error {
	if g == nil || g.ref == nil {
		return errors.NullDeref(className[T]())
	}
	if g.ref.st.released.Load() {
		return errors.Released(phase, "global reference")
	}
	return nil
}

// VM returns the runtime the reference belongs to.
func (g *Global[T]) VM() *VM {
	return g.ref.st.vm
}

// Deref returns a borrowed view of the object, usable until g is released.
func (g *Global[T]) Deref() (View[T], error) {
	if err := g.check(errors.PhaseReference); err != nil {
		return View[T]{}, err
	}
	return View[T]{obj: g.ref.st.obj, global: g.ref.st}, nil
}

// ToLocal creates a local reference to the same object in env's scope.
func (g *Global[T]) ToLocal(env *Env) (*Local[T], error) {
	obj, err := g.object(env)
	if err != nil {
		return nil, err
	}
	return localFrom[T](env, obj)
}

// Clone creates a second, independently released global reference.
func (g *Global[T]) Clone(env *Env) (*Global[T], error) {
	obj, err := g.object(env)
	if err != nil {
		return nil, err
	}
	return globalFrom[T](env, obj)
}

// Release deletes the reference. It may be called from any thread, inside or
// outside a scope, attached or not. Failures are logged and reported to
// observers rather than returned. Releasing twice does nothing.
func (g *Global[T]) Release() {
	if g == nil || g.ref == nil {
		return
	}
	g.ref.cleanup.Stop()
	g.ref.st.release()
}

func (g *Global[T]) object(env *Env) (raw.Object, error) {
	if err := g.check(errors.PhaseReference); err != nil {
		return raw.Object{}, err
	}
	if err := env.usable(errors.PhaseReference); err != nil {
		return raw.Object{}, err
	}
	if env.vm != g.ref.st.vm {
		return raw.Object{}, errors.InvalidInput(errors.PhaseReference, "global reference belongs to another runtime")
	}
	return g.ref.st.obj, nil
}

func (g *Global[T]) jvalue(env *Env) (raw.Value, error) {
	obj, err := g.object(env)
	if err != nil {
		return raw.Value{}, err
	}
	return raw.ObjectValue(obj), nil
}

func (g *Global[T]) String() string {
	if g == nil || g.ref == nil {
		return fmt.Sprintf("Global[%s](null)", className[T]())
	}
	return fmt.Sprintf("Global[%s](%v)", className[T](), g.ref.st.obj)
}

func (st *globalState) release() bool {
	if !st.released.CompareAndSwap(false, true) {
		return false
	}
	vm := st.vm
	err := vm.attach.Borrow(func(env raw.Env) error {
		raw.Invoke(env,
			func(t *raw.EnvFuncs) func(uintptr, uintptr) { return t.DeleteGlobalRef },
			func(e uintptr, f func(uintptr, uintptr)) struct{} {
				f(e, st.obj.Addr())
				return struct{}{}
			},
		)
		return nil
	})
	if err != nil {
		vm.releaseFailures.Add(1)
		vm.emit(Event{Type: EventReleaseFailed, Err: err})
		vm.log.Warn("couldn't release global reference",
			zap.String("class", st.class),
			zap.Error(err))
		return false
	}
	vm.globals.Add(-1)
	vm.emit(Event{Type: EventGlobalDeleted})
	return true
}

func (st *globalState) collect() {
	if st.release() {
		st.vm.collected.Add(1)
		st.vm.emit(Event{Type: EventGlobalCollected})
		st.vm.log.Debug("global reference released by collector", zap.String("class", st.class))
	}
}

// UpcastGlobal is Upcast for global references. The result shares g's
// reference.
func UpcastGlobal[R, S Type](g *Global[R], witness func(R) S) *Global[S] {
	_ = witness
	if g == nil {
		return nil
	}
	return &Global[S]{ref: g.ref}
}
