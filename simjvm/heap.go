package simjvm

import (
	"fmt"
	"strings"

	"github.com/wippyai/jvm-bridge/raw"
)

// Object is a heap object. Value holds the class-specific payload: the Go
// string of a String, the int32 of an Integer, the *Class of a class mirror,
// the message of a Throwable (a *Object string or nil), the *List of a list.
type Object struct {
	Value any
	Class *Class
	ID    uint64
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%x", o.Class.DottedName(), o.ID)
}

// List is the payload of java/util/ArrayList objects.
type List struct {
	Items []*Object
}

// Func implements a method. It runs with the runtime locked and must only
// touch the runtime through its Frame.
type Func func(f *Frame) raw.Value

// MethodDef declares a method of a class.
type MethodDef struct {
	Fn     Func
	Name   string
	Sig    string
	Static bool
}

// ClassDef declares a class.
type ClassDef struct {
	Name       string
	Super      string
	Interfaces []string
	Methods    []MethodDef
	Interface  bool
	Abstract   bool
}

// Method is a resolved method.
type Method struct {
	Fn     Func
	Class  *Class
	Name   string
	Sig    string
	ID     uintptr
	Params int
	Static bool
}

func (m *Method) key() string {
	return m.Name + m.Sig
}

// Class is a defined class or interface.
type Class struct {
	Super      *Class
	mirror     *Object
	methods    map[string]*Method
	Name       string
	Interfaces []*Class
	Interface  bool
	Abstract   bool
}

// DottedName returns the binary name with dots, as Class.getName reports it.
func (c *Class) DottedName() string {
	return strings.ReplaceAll(c.Name, "/", ".")
}

// AssignableTo reports whether instances of c are instances of t.
func (c *Class) AssignableTo(t *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == t {
			return true
		}
		for _, i := range k.Interfaces {
			if i.AssignableTo(t) {
				return true
			}
		}
	}
	return false
}

// lookup resolves a method by name and signature the way GetMethodID does:
// constructors are never inherited, everything else is searched through
// superclasses and then interfaces.
func (c *Class) lookup(name, sig string, static bool) *Method {
	key := name + sig
	if name == "<init>" {
		if m := c.methods[key]; m != nil && !static {
			return m
		}
		return nil
	}
	for k := c; k != nil; k = k.Super {
		if m := k.methods[key]; m != nil && m.Static == static {
			return m
		}
	}
	if static {
		return nil
	}
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if m := i.lookup(name, sig, false); m != nil {
				return m
			}
		}
	}
	return nil
}

// impl finds the implementation an instance of c runs for m.
func (c *Class) impl(m *Method) *Method {
	key := m.key()
	for k := c; k != nil; k = k.Super {
		if im := k.methods[key]; im != nil && im.Fn != nil && !im.Static {
			return im
		}
	}
	return nil
}

// Define adds a class to the runtime. The superclass and interfaces must be
// defined already; the superclass defaults to java/lang/Object.
func (rt *Runtime) Define(def ClassDef) (*Class, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if def.Name == "" {
		return nil, fmt.Errorf("class name is empty")
	}
	if _, exists := rt.classes[def.Name]; exists {
		return nil, fmt.Errorf("class %s already defined", def.Name)
	}

	c := &Class{
		Name:      def.Name,
		Interface: def.Interface,
		Abstract:  def.Abstract || def.Interface,
		methods:   make(map[string]*Method, len(def.Methods)),
	}

	super := def.Super
	if super == "" && def.Name != "java/lang/Object" && !def.Interface {
		super = "java/lang/Object"
	}
	if super != "" {
		s := rt.classes[super]
		if s == nil {
			return nil, fmt.Errorf("class %s: superclass %s not defined", def.Name, super)
		}
		c.Super = s
	}
	for _, name := range def.Interfaces {
		i := rt.classes[name]
		if i == nil || !i.Interface {
			return nil, fmt.Errorf("class %s: %s is not a defined interface", def.Name, name)
		}
		c.Interfaces = append(c.Interfaces, i)
	}

	for _, md := range def.Methods {
		params, err := paramCount(md.Sig)
		if err != nil {
			return nil, fmt.Errorf("class %s: method %s: %w", def.Name, md.Name, err)
		}
		rt.nextMethod++
		m := &Method{
			ID:     methodBase + rt.nextMethod*8,
			Class:  c,
			Name:   md.Name,
			Sig:    md.Sig,
			Params: params,
			Static: md.Static,
			Fn:     md.Fn,
		}
		c.methods[m.key()] = m
		rt.methods[m.ID] = m
	}

	rt.classes[c.Name] = c
	// Mirrors are allocated once the class exists so java/lang/Class itself
	// can be resolved; the two bootstrap classes are patched below.
	if cc := rt.classes["java/lang/Class"]; cc != nil {
		c.mirror = rt.alloc(cc, c)
		for _, k := range rt.classes {
			if k.mirror == nil {
				k.mirror = rt.alloc(cc, k)
			}
		}
	}
	return c, nil
}

// Class returns a defined class by binary name.
func (rt *Runtime) Class(name string) (*Class, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	c, ok := rt.classes[name]
	return c, ok
}

func (rt *Runtime) alloc(c *Class, value any) *Object {
	rt.nextObject++
	o := &Object{ID: rt.nextObject, Class: c, Value: value}
	rt.objects[o.ID] = o
	return o
}

func (rt *Runtime) mustClass(name string) *Class {
	c := rt.classes[name]
	if c == nil {
		panic("simjvm: builtin class " + name + " missing")
	}
	return c
}

// paramCount counts the parameters in a method descriptor.
func paramCount(sig string) (int, error) {
	if !strings.HasPrefix(sig, "(") {
		return 0, fmt.Errorf("descriptor %q does not start with '('", sig)
	}
	end := strings.IndexByte(sig, ')')
	if end < 0 || end == len(sig)-1 {
		return 0, fmt.Errorf("descriptor %q has no return type", sig)
	}

	n := 0
	params := sig[1:end]
	for i := 0; i < len(params); {
		for i < len(params) && params[i] == '[' {
			i++
		}
		if i >= len(params) {
			return 0, fmt.Errorf("descriptor %q ends inside an array type", sig)
		}
		switch params[i] {
		case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
			i++
		case 'L':
			semi := strings.IndexByte(params[i:], ';')
			if semi < 0 {
				return 0, fmt.Errorf("descriptor %q has an unterminated class name", sig)
			}
			i += semi + 1
		default:
			return 0, fmt.Errorf("descriptor %q has invalid type %q", sig, params[i])
		}
		n++
	}
	return n, nil
}
