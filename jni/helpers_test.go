package jni_test

import (
	"sync"
	"testing"

	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/simjvm"
)

func newVM(t *testing.T, simOpts ...simjvm.Option) (*simjvm.Runtime, *jni.VM) {
	t.Helper()
	rt := simjvm.New(simOpts...)
	vm, err := jni.New(rt.VM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt, vm
}

// onThread runs fn on a separate goroutine, and so on another OS thread than
// any goroutine locked to its thread, and waits for it.
func onThread(fn func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	<-done
}

func assertNoViolations(t *testing.T, rt *simjvm.Runtime) {
	t.Helper()
	for _, v := range rt.Violations() {
		t.Errorf("violation: %v", v)
	}
}

func envAddr(t *testing.T, env *jni.Env) uintptr {
	t.Helper()
	r, err := env.Raw()
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	return r.Addr()
}

// objectOf resolves the heap object behind any reference.
func objectOf[T jni.Type](t *testing.T, rt *simjvm.Runtime, v jni.View[T]) *simjvm.Object {
	t.Helper()
	r, err := v.Raw()
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	o, ok := rt.ObjectAt(r.Addr())
	if !ok {
		t.Fatalf("reference %v is not live", r)
	}
	return o
}

func newInteger(env *jni.Env, v int32) (*jni.Local[lang.Integer], error) {
	cls, err := jni.ClassOf[lang.Integer](env)
	if err != nil {
		return nil, err
	}
	ctor, err := jni.ConstructorOf[lang.Integer](env, "(I)V")
	if err != nil {
		return nil, err
	}
	return jni.NewObject[lang.Integer](env, cls, ctor, jni.Int(v))
}

type recorder struct {
	mu     sync.Mutex
	events []jni.Event
}

func (r *recorder) OnEvent(e jni.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(typ jni.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
