package raw

// Status codes returned by the invocation-interface slots.
const (
	StatusOK       int32 = 0
	StatusErr      int32 = -1
	StatusDetached int32 = -2
	StatusVersion  int32 = -3
	StatusNoMem    int32 = -4
	StatusExists   int32 = -5
	StatusInvalid  int32 = -6
)

// Version is the native interface version negotiated with the runtime (1.8).
const Version int32 = 0x00010008

// VMFuncs mirrors the runtime's invocation interface table. Backends
// populate each slot with a function that performs the native call.
type VMFuncs struct {
	GetEnv                      func(vm uintptr, version int32) (uintptr, int32)
	AttachCurrentThread         func(vm uintptr) (uintptr, int32)
	AttachCurrentThreadAsDaemon func(vm uintptr) (uintptr, int32)
	DetachCurrentThread         func(vm uintptr) int32

	// Env is the table every environment of this runtime dispatches through.
	Env *EnvFuncs
}

// EnvFuncs mirrors the subset of the native interface table the bridge uses.
// Slots taking strings receive them unencoded; backends are responsible for
// the runtime's string encoding.
type EnvFuncs struct {
	GetVersion func(env uintptr) int32

	FindClass func(env uintptr, name string) uintptr

	Throw             func(env uintptr, obj uintptr) int32
	ThrowNew          func(env uintptr, class uintptr, msg string) int32
	ExceptionOccurred func(env uintptr) uintptr
	ExceptionCheck    func(env uintptr) bool
	ExceptionClear    func(env uintptr)

	NewLocalRef     func(env uintptr, obj uintptr) uintptr
	DeleteLocalRef  func(env uintptr, obj uintptr)
	NewGlobalRef    func(env uintptr, obj uintptr) uintptr
	DeleteGlobalRef func(env uintptr, obj uintptr)
	IsSameObject    func(env uintptr, a, b uintptr) bool

	GetObjectClass func(env uintptr, obj uintptr) uintptr
	IsInstanceOf   func(env uintptr, obj, class uintptr) bool

	GetMethodID       func(env uintptr, class uintptr, name, sig string) uintptr
	GetStaticMethodID func(env uintptr, class uintptr, name, sig string) uintptr

	NewObjectA func(env uintptr, class, method uintptr, args []Value) uintptr

	CallObjectMethodA  func(env uintptr, obj, method uintptr, args []Value) uintptr
	CallBooleanMethodA func(env uintptr, obj, method uintptr, args []Value) bool
	CallIntMethodA     func(env uintptr, obj, method uintptr, args []Value) int32
	CallLongMethodA    func(env uintptr, obj, method uintptr, args []Value) int64
	CallDoubleMethodA  func(env uintptr, obj, method uintptr, args []Value) float64
	CallVoidMethodA    func(env uintptr, obj, method uintptr, args []Value)

	CallStaticObjectMethodA func(env uintptr, class, method uintptr, args []Value) uintptr
	CallStaticIntMethodA    func(env uintptr, class, method uintptr, args []Value) int32
	CallStaticVoidMethodA   func(env uintptr, class, method uintptr, args []Value)

	NewStringUTF func(env uintptr, s string) uintptr
	GetStringUTF func(env uintptr, str uintptr) (string, bool)
}
