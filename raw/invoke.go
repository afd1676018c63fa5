package raw

import (
	"fmt"
	"reflect"
)

// Invoke selects a slot from env's table and calls it. It is the only place
// an environment table is read; every native call goes through here.
//
//	ref := raw.Invoke(env,
//		func(t *raw.EnvFuncs) func(uintptr, uintptr) uintptr { return t.NewLocalRef },
//		func(env uintptr, f func(uintptr, uintptr) uintptr) uintptr { return f(env, obj.Addr()) },
//	)
//
// A slot the backend did not populate is an ABI violation and panics.
func Invoke[F any, R any](env Env, slot func(*EnvFuncs) F, call func(env uintptr, f F) R) R {
	if !env.Valid() {
		panic("raw: invoke through invalid env handle")
	}
	f := slot(env.fns)
	mustPopulated(f)
	return call(env.addr, f)
}

// InvokeVM is Invoke for the runtime handle's invocation table.
func InvokeVM[F any, R any](vm VM, slot func(*VMFuncs) F, call func(vm uintptr, f F) R) R {
	if !vm.Valid() {
		panic("raw: invoke through invalid vm handle")
	}
	f := slot(vm.fns)
	mustPopulated(f)
	return call(vm.addr, f)
}

func mustPopulated(f any) {
	v := reflect.ValueOf(f)
	if !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil()) {
		panic(fmt.Sprintf("raw: function table slot %T is not populated", f))
	}
}
