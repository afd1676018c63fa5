package raw

import "unsafe"

// Value is the 8-byte argument union passed to the *A call slots.
// Scalars are stored at offset zero in native byte order, matching the
// C layout, so a []Value can be handed to the runtime as-is.
type Value [8]byte

func BoolValue(b bool) Value {
	var v Value
	if b {
		v[0] = 1
	}
	return v
}

func ByteValue(b int8) Value {
	var v Value
	*(*int8)(unsafe.Pointer(&v[0])) = b
	return v
}

func CharValue(c uint16) Value {
	var v Value
	*(*uint16)(unsafe.Pointer(&v[0])) = c
	return v
}

func ShortValue(s int16) Value {
	var v Value
	*(*int16)(unsafe.Pointer(&v[0])) = s
	return v
}

func IntValue(i int32) Value {
	var v Value
	*(*int32)(unsafe.Pointer(&v[0])) = i
	return v
}

func LongValue(l int64) Value {
	var v Value
	*(*int64)(unsafe.Pointer(&v[0])) = l
	return v
}

func FloatValue(f float32) Value {
	var v Value
	*(*float32)(unsafe.Pointer(&v[0])) = f
	return v
}

func DoubleValue(d float64) Value {
	var v Value
	*(*float64)(unsafe.Pointer(&v[0])) = d
	return v
}

// ObjectValue passes a borrowed object reference.
func ObjectValue(o Object) Value {
	var v Value
	*(*uintptr)(unsafe.Pointer(&v[0])) = o.addr
	return v
}

// NullValue passes a null object reference.
func NullValue() Value {
	return Value{}
}

func (v Value) Bool() bool { return v[0] != 0 }
func (v Value) Byte() int8 { return *(*int8)(unsafe.Pointer(&v[0])) }
func (v Value) Char() uint16 { return *(*uint16)(unsafe.Pointer(&v[0])) }
func (v Value) Short() int16 { return *(*int16)(unsafe.Pointer(&v[0])) }
func (v Value) Int() int32 { return *(*int32)(unsafe.Pointer(&v[0])) }
func (v Value) Long() int64 { return *(*int64)(unsafe.Pointer(&v[0])) }
func (v Value) Float() float32 { return *(*float32)(unsafe.Pointer(&v[0])) }
func (v Value) Double() float64 { return *(*float64)(unsafe.Pointer(&v[0])) }
func (v Value) ObjectAddr() uintptr { return *(*uintptr)(unsafe.Pointer(&v[0])) }

// Object returns the object reference held by v, or false for null.
func (v Value) Object() (Object, bool) {
	return NewObject(v.ObjectAddr())
}
