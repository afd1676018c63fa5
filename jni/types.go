package jni

import (
	"github.com/wippyai/jvm-bridge/raw"
)

// Type is implemented by the tag types that name a runtime class, such as
// lang.String or util.ArrayList.
type Type interface {
	JNIName() string
}

// Arg is a call argument: a scalar built with Int, Long and friends, Null,
// or any Local, Global or View.
type Arg interface {
	jvalue(env *Env) (raw.Value, error)
}

// Ref is a live object reference usable as a call receiver or class: a
// Local, Global or View.
type Ref interface {
	Arg
	object(env *Env) (raw.Object, error)
}

type scalar raw.Value

func (s scalar) jvalue(*Env) (raw.Value, error) { return raw.Value(s), nil }

// Bool is a boolean argument.
func Bool(v bool) Arg { return scalar(raw.BoolValue(v)) }

// Byte is a byte argument.
func Byte(v int8) Arg { return scalar(raw.ByteValue(v)) }

// Char is a char argument.
func Char(v uint16) Arg { return scalar(raw.CharValue(v)) }

// Short is a short argument.
func Short(v int16) Arg { return scalar(raw.ShortValue(v)) }

// Int is an int argument.
func Int(v int32) Arg { return scalar(raw.IntValue(v)) }

// Long is a long argument.
func Long(v int64) Arg { return scalar(raw.LongValue(v)) }

// Float is a float argument.
func Float(v float32) Arg { return scalar(raw.FloatValue(v)) }

// Double is a double argument.
func Double(v float64) Arg { return scalar(raw.DoubleValue(v)) }

// Null is a null object argument.
func Null() Arg { return scalar(raw.NullValue()) }

func className[T Type]() string {
	var t T
	return t.JNIName()
}
