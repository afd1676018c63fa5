package simjvm

import (
	"fmt"
	"strconv"

	"github.com/wippyai/jvm-bridge/raw"
)

func builtins() []ClassDef {
	defs := []ClassDef{
		{
			Name: "java/lang/Object",
			Methods: []MethodDef{
				{Name: "<init>", Sig: "()V", Fn: func(*Frame) raw.Value { return raw.Value{} }},
				{Name: "hashCode", Sig: "()I", Fn: func(f *Frame) raw.Value {
					return raw.IntValue(int32(f.This.ID))
				}},
				{Name: "equals", Sig: "(Ljava/lang/Object;)Z", Fn: func(f *Frame) raw.Value {
					return raw.BoolValue(f.This == f.Object(0))
				}},
				{Name: "toString", Sig: "()Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
					return f.Return(f.String(f.This.String()))
				}},
				{Name: "getClass", Sig: "()Ljava/lang/Class;", Fn: func(f *Frame) raw.Value {
					return f.Return(f.This.Class.mirror)
				}},
			},
		},
		{
			Name: "java/lang/Class",
			Methods: []MethodDef{
				{Name: "getName", Sig: "()Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
					c := f.This.Value.(*Class)
					return f.Return(f.String(c.DottedName()))
				}},
			},
		},
		{
			Name: "java/lang/String",
			Methods: []MethodDef{
				{Name: "length", Sig: "()I", Fn: func(f *Frame) raw.Value {
					return raw.IntValue(int32(len([]rune(f.This.Value.(string)))))
				}},
				{Name: "toString", Sig: "()Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
					return f.Return(f.This)
				}},
			},
		},
		{
			Name: "java/lang/Throwable",
			Methods: append(throwableCtors(),
				MethodDef{Name: "getMessage", Sig: "()Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
					msg, _ := f.This.Value.(*Object)
					return f.Return(msg)
				}},
				MethodDef{Name: "toString", Sig: "()Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
					s := f.This.Class.DottedName()
					if msg, _ := f.This.Value.(*Object); msg != nil {
						s += ": " + msg.Value.(string)
					}
					return f.Return(f.String(s))
				}},
			),
		},
	}

	for _, t := range []struct{ name, super string }{
		{"java/lang/Exception", "java/lang/Throwable"},
		{"java/lang/RuntimeException", "java/lang/Exception"},
		{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
		{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
		{"java/lang/NumberFormatException", "java/lang/IllegalArgumentException"},
		{"java/lang/NullPointerException", "java/lang/RuntimeException"},
		{"java/lang/InstantiationException", "java/lang/Exception"},
		{"java/lang/Error", "java/lang/Throwable"},
		{"java/lang/OutOfMemoryError", "java/lang/Error"},
		{"java/lang/LinkageError", "java/lang/Error"},
		{"java/lang/NoClassDefFoundError", "java/lang/LinkageError"},
		{"java/lang/NoSuchMethodError", "java/lang/LinkageError"},
		{"java/lang/AbstractMethodError", "java/lang/LinkageError"},
	} {
		defs = append(defs, ClassDef{Name: t.name, Super: t.super, Methods: throwableCtors()})
	}

	defs = append(defs,
		ClassDef{
			Name:     "java/lang/Number",
			Abstract: true,
			Methods: []MethodDef{
				{Name: "<init>", Sig: "()V", Fn: func(*Frame) raw.Value { return raw.Value{} }},
				{Name: "intValue", Sig: "()I"},
				{Name: "longValue", Sig: "()J"},
				{Name: "doubleValue", Sig: "()D"},
			},
		},
		ClassDef{
			Name:    "java/lang/Integer",
			Super:   "java/lang/Number",
			Methods: integerMethods(),
		},
		ClassDef{
			Name:      "java/util/List",
			Interface: true,
			Methods: []MethodDef{
				{Name: "size", Sig: "()I"},
				{Name: "isEmpty", Sig: "()Z"},
				{Name: "get", Sig: "(I)Ljava/lang/Object;"},
				{Name: "add", Sig: "(Ljava/lang/Object;)Z"},
				{Name: "subList", Sig: "(II)Ljava/util/List;"},
				{Name: "clear", Sig: "()V"},
			},
		},
		ClassDef{
			Name:       "java/util/ArrayList",
			Interfaces: []string{"java/util/List"},
			Methods:    arrayListMethods(),
		},
	)
	return defs
}

func throwableCtors() []MethodDef {
	return []MethodDef{
		{Name: "<init>", Sig: "()V", Fn: func(f *Frame) raw.Value {
			f.This.Value = (*Object)(nil)
			return raw.Value{}
		}},
		{Name: "<init>", Sig: "(Ljava/lang/String;)V", Fn: func(f *Frame) raw.Value {
			f.This.Value = f.Object(0)
			return raw.Value{}
		}},
	}
}

func integerMethods() []MethodDef {
	value := func(f *Frame) int32 { return f.This.Value.(int32) }
	return []MethodDef{
		{Name: "<init>", Sig: "(I)V", Fn: func(f *Frame) raw.Value {
			f.This.Value = f.Int(0)
			return raw.Value{}
		}},
		{Name: "intValue", Sig: "()I", Fn: func(f *Frame) raw.Value {
			return raw.IntValue(value(f))
		}},
		{Name: "longValue", Sig: "()J", Fn: func(f *Frame) raw.Value {
			return raw.LongValue(int64(value(f)))
		}},
		{Name: "doubleValue", Sig: "()D", Fn: func(f *Frame) raw.Value {
			return raw.DoubleValue(float64(value(f)))
		}},
		{Name: "hashCode", Sig: "()I", Fn: func(f *Frame) raw.Value {
			return raw.IntValue(value(f))
		}},
		{Name: "equals", Sig: "(Ljava/lang/Object;)Z", Fn: func(f *Frame) raw.Value {
			other := f.Object(0)
			if other == nil || other.Class != f.This.Class {
				return raw.BoolValue(false)
			}
			return raw.BoolValue(other.Value.(int32) == value(f))
		}},
		{Name: "toString", Sig: "()Ljava/lang/String;", Fn: func(f *Frame) raw.Value {
			return f.Return(f.String(strconv.Itoa(int(value(f)))))
		}},
		{Name: "valueOf", Sig: "(I)Ljava/lang/Integer;", Static: true, Fn: func(f *Frame) raw.Value {
			return f.Return(f.New("java/lang/Integer", f.Int(0)))
		}},
		{Name: "parseInt", Sig: "(Ljava/lang/String;)I", Static: true, Fn: func(f *Frame) raw.Value {
			s := f.Object(0)
			if s == nil {
				return f.Throw("java/lang/NumberFormatException", "Cannot parse null string: null")
			}
			n, err := strconv.ParseInt(s.Value.(string), 10, 32)
			if err != nil {
				return f.Throw("java/lang/NumberFormatException", fmt.Sprintf("For input string: \"%s\"", s.Value))
			}
			return raw.IntValue(int32(n))
		}},
	}
}

func arrayListMethods() []MethodDef {
	list := func(f *Frame) *List { return f.This.Value.(*List) }
	outOfBounds := func(f *Frame, i, n int) raw.Value {
		return f.Throw("java/lang/IndexOutOfBoundsException",
			fmt.Sprintf("Index %d out of bounds for length %d", i, n))
	}
	return []MethodDef{
		{Name: "<init>", Sig: "()V", Fn: func(f *Frame) raw.Value {
			f.This.Value = &List{}
			return raw.Value{}
		}},
		{Name: "size", Sig: "()I", Fn: func(f *Frame) raw.Value {
			return raw.IntValue(int32(len(list(f).Items)))
		}},
		{Name: "isEmpty", Sig: "()Z", Fn: func(f *Frame) raw.Value {
			return raw.BoolValue(len(list(f).Items) == 0)
		}},
		{Name: "get", Sig: "(I)Ljava/lang/Object;", Fn: func(f *Frame) raw.Value {
			l, i := list(f), int(f.Int(0))
			if i < 0 || i >= len(l.Items) {
				return outOfBounds(f, i, len(l.Items))
			}
			return f.Return(l.Items[i])
		}},
		{Name: "add", Sig: "(Ljava/lang/Object;)Z", Fn: func(f *Frame) raw.Value {
			l := list(f)
			l.Items = append(l.Items, f.Object(0))
			return raw.BoolValue(true)
		}},
		{Name: "subList", Sig: "(II)Ljava/util/List;", Fn: func(f *Frame) raw.Value {
			l := list(f)
			from, to := int(f.Int(0)), int(f.Int(1))
			switch {
			case from < 0:
				return f.Throw("java/lang/IndexOutOfBoundsException", fmt.Sprintf("fromIndex = %d", from))
			case to > len(l.Items):
				return f.Throw("java/lang/IndexOutOfBoundsException", fmt.Sprintf("toIndex = %d", to))
			case from > to:
				return f.Throw("java/lang/IllegalArgumentException", fmt.Sprintf("fromIndex(%d) > toIndex(%d)", from, to))
			}
			sub := &List{Items: append([]*Object(nil), l.Items[from:to]...)}
			return f.Return(f.New("java/util/ArrayList", sub))
		}},
		{Name: "clear", Sig: "()V", Fn: func(f *Frame) raw.Value {
			list(f).Items = nil
			return raw.Value{}
		}},
	}
}
