package simjvm

import (
	"github.com/wippyai/jvm-bridge/raw"
)

// Frame is the activation of one Go-implemented method.
type Frame struct {
	rt     *Runtime
	th     *thread
	This   *Object
	Method *Method
	Args   []raw.Value
}

// Object returns object argument i, nil for null or a dead reference.
func (f *Frame) Object(i int) *Object {
	o, _ := f.rt.deref(f.th, f.Args[i].ObjectAddr())
	return o
}

// Int returns int argument i.
func (f *Frame) Int(i int) int32 { return f.Args[i].Int() }

// Long returns long argument i.
func (f *Frame) Long(i int) int64 { return f.Args[i].Long() }

// Bool returns boolean argument i.
func (f *Frame) Bool(i int) bool { return f.Args[i].Bool() }

// Double returns double argument i.
func (f *Frame) Double(i int) float64 { return f.Args[i].Double() }

// New allocates an instance of a defined class without running a
// constructor.
func (f *Frame) New(class string, value any) *Object {
	return f.rt.alloc(f.rt.mustClass(class), value)
}

// String allocates a string.
func (f *Frame) String(s string) *Object {
	return f.rt.message(s)
}

// Return hands o back to the caller as a new local reference.
func (f *Frame) Return(o *Object) raw.Value {
	return raw.ObjectValue(f.ref(o))
}

func (f *Frame) ref(o *Object) raw.Object {
	obj, _ := raw.NewObject(f.rt.newLocal(f.th, o))
	return obj
}

// Throw makes a new instance of class pending with msg as its message and
// returns the zero value for the method to return.
func (f *Frame) Throw(class, msg string) raw.Value {
	f.rt.throw(f.th, class, msg)
	return raw.Value{}
}

// Raise makes o pending.
func (f *Frame) Raise(o *Object) raw.Value {
	f.rt.raise(f.th, o)
	return raw.Value{}
}

// ClassNamed returns a defined class.
func (f *Frame) ClassNamed(name string) (*Class, bool) {
	c, ok := f.rt.classes[name]
	return c, ok
}
