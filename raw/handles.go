package raw

import "fmt"

// VM is the process-wide runtime handle. It is safe to share between threads.
type VM struct {
	fns  *VMFuncs
	addr uintptr
}

// NewVM wraps a runtime address. It fails on a null address or a missing table.
func NewVM(addr uintptr, fns *VMFuncs) (VM, bool) {
	if addr == 0 || fns == nil || fns.Env == nil {
		return VM{}, false
	}
	return VM{addr: addr, fns: fns}, true
}

// Addr returns the raw address.
func (v VM) Addr() uintptr { return v.addr }

// Valid reports whether v was produced by NewVM.
func (v VM) Valid() bool { return v.addr != 0 }

func (v VM) String() string { return fmt.Sprintf("vm@%#x", v.addr) }

// Env is a per-thread environment handle. It is only valid on the thread
// that obtained it, while that thread remains attached.
type Env struct {
	fns  *EnvFuncs
	addr uintptr
}

// NewEnv wraps an environment address dispatching through fns.
func NewEnv(addr uintptr, fns *EnvFuncs) (Env, bool) {
	if addr == 0 || fns == nil {
		return Env{}, false
	}
	return Env{addr: addr, fns: fns}, true
}

// Addr returns the raw address.
func (e Env) Addr() uintptr { return e.addr }

// Valid reports whether e was produced by NewEnv.
func (e Env) Valid() bool { return e.addr != 0 }

func (e Env) String() string { return fmt.Sprintf("env@%#x", e.addr) }

// Object is a non-null object reference as handed out by the runtime.
// It carries no ownership.
type Object struct {
	addr uintptr
}

// NewObject wraps an object address; a null address yields (Object{}, false).
func NewObject(addr uintptr) (Object, bool) {
	if addr == 0 {
		return Object{}, false
	}
	return Object{addr: addr}, true
}

// Addr returns the raw address.
func (o Object) Addr() uintptr { return o.addr }

func (o Object) String() string { return fmt.Sprintf("obj@%#x", o.addr) }

// Method is a resolved method or constructor id. It is stable for the
// lifetime of its class and carries no ownership.
type Method struct {
	addr uintptr
}

// NewMethod wraps a method id; a null id yields (Method{}, false).
func NewMethod(addr uintptr) (Method, bool) {
	if addr == 0 {
		return Method{}, false
	}
	return Method{addr: addr}, true
}

// Addr returns the raw address.
func (m Method) Addr() uintptr { return m.addr }

func (m Method) String() string { return fmt.Sprintf("method@%#x", m.addr) }
