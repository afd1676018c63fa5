//go:build jni && cgo

package jnisys

/*
#cgo LDFLAGS: -ljvm
#include <jni.h>
#include <stdlib.h>

// Every JNI slot is reached through one of these wrappers so Go never calls
// through a C function pointer. jclass, jstring and jthrowable are all
// jobject in C, which keeps the Go side down to one reference type.

static jint jb_GetEnv(JavaVM *vm, JNIEnv **env, jint version) {
	return (*vm)->GetEnv(vm, (void **)env, version);
}
static jint jb_AttachCurrentThread(JavaVM *vm, JNIEnv **env) {
	return (*vm)->AttachCurrentThread(vm, (void **)env, NULL);
}
static jint jb_AttachCurrentThreadAsDaemon(JavaVM *vm, JNIEnv **env) {
	return (*vm)->AttachCurrentThreadAsDaemon(vm, (void **)env, NULL);
}
static jint jb_DetachCurrentThread(JavaVM *vm) {
	return (*vm)->DetachCurrentThread(vm);
}

static jint jb_GetVersion(JNIEnv *env) { return (*env)->GetVersion(env); }
static jobject jb_FindClass(JNIEnv *env, const char *name) { return (*env)->FindClass(env, name); }

static jint jb_Throw(JNIEnv *env, jobject obj) { return (*env)->Throw(env, (jthrowable)obj); }
static jint jb_ThrowNew(JNIEnv *env, jobject cls, const char *msg) { return (*env)->ThrowNew(env, (jclass)cls, msg); }
static jobject jb_ExceptionOccurred(JNIEnv *env) { return (*env)->ExceptionOccurred(env); }
static jboolean jb_ExceptionCheck(JNIEnv *env) { return (*env)->ExceptionCheck(env); }
static void jb_ExceptionClear(JNIEnv *env) { (*env)->ExceptionClear(env); }

static jobject jb_NewLocalRef(JNIEnv *env, jobject obj) { return (*env)->NewLocalRef(env, obj); }
static void jb_DeleteLocalRef(JNIEnv *env, jobject obj) { (*env)->DeleteLocalRef(env, obj); }
static jobject jb_NewGlobalRef(JNIEnv *env, jobject obj) { return (*env)->NewGlobalRef(env, obj); }
static void jb_DeleteGlobalRef(JNIEnv *env, jobject obj) { (*env)->DeleteGlobalRef(env, obj); }
static jboolean jb_IsSameObject(JNIEnv *env, jobject a, jobject b) { return (*env)->IsSameObject(env, a, b); }

static jobject jb_GetObjectClass(JNIEnv *env, jobject obj) { return (*env)->GetObjectClass(env, obj); }
static jboolean jb_IsInstanceOf(JNIEnv *env, jobject obj, jobject cls) { return (*env)->IsInstanceOf(env, obj, (jclass)cls); }

static jmethodID jb_GetMethodID(JNIEnv *env, jobject cls, const char *name, const char *sig) {
	return (*env)->GetMethodID(env, (jclass)cls, name, sig);
}
static jmethodID jb_GetStaticMethodID(JNIEnv *env, jobject cls, const char *name, const char *sig) {
	return (*env)->GetStaticMethodID(env, (jclass)cls, name, sig);
}

static jobject jb_NewObjectA(JNIEnv *env, jobject cls, jmethodID m, const jvalue *args) {
	return (*env)->NewObjectA(env, (jclass)cls, m, args);
}
static jobject jb_CallObjectMethodA(JNIEnv *env, jobject obj, jmethodID m, const jvalue *args) {
	return (*env)->CallObjectMethodA(env, obj, m, args);
}
static jboolean jb_CallBooleanMethodA(JNIEnv *env, jobject obj, jmethodID m, const jvalue *args) {
	return (*env)->CallBooleanMethodA(env, obj, m, args);
}
static jint jb_CallIntMethodA(JNIEnv *env, jobject obj, jmethodID m, const jvalue *args) {
	return (*env)->CallIntMethodA(env, obj, m, args);
}
static jlong jb_CallLongMethodA(JNIEnv *env, jobject obj, jmethodID m, const jvalue *args) {
	return (*env)->CallLongMethodA(env, obj, m, args);
}
static jdouble jb_CallDoubleMethodA(JNIEnv *env, jobject obj, jmethodID m, const jvalue *args) {
	return (*env)->CallDoubleMethodA(env, obj, m, args);
}
static void jb_CallVoidMethodA(JNIEnv *env, jobject obj, jmethodID m, const jvalue *args) {
	(*env)->CallVoidMethodA(env, obj, m, args);
}
static jobject jb_CallStaticObjectMethodA(JNIEnv *env, jobject cls, jmethodID m, const jvalue *args) {
	return (*env)->CallStaticObjectMethodA(env, (jclass)cls, m, args);
}
static jint jb_CallStaticIntMethodA(JNIEnv *env, jobject cls, jmethodID m, const jvalue *args) {
	return (*env)->CallStaticIntMethodA(env, (jclass)cls, m, args);
}
static void jb_CallStaticVoidMethodA(JNIEnv *env, jobject cls, jmethodID m, const jvalue *args) {
	(*env)->CallStaticVoidMethodA(env, (jclass)cls, m, args);
}

static jobject jb_NewStringUTF(JNIEnv *env, const char *s) { return (*env)->NewStringUTF(env, s); }
static jsize jb_GetStringUTFLength(JNIEnv *env, jobject s) { return (*env)->GetStringUTFLength(env, (jstring)s); }
static const char *jb_GetStringUTFChars(JNIEnv *env, jobject s) { return (*env)->GetStringUTFChars(env, (jstring)s, NULL); }
static void jb_ReleaseStringUTFChars(JNIEnv *env, jobject s, const char *chars) {
	(*env)->ReleaseStringUTFChars(env, (jstring)s, chars);
}

static jint jb_GetCreatedJavaVMs(JavaVM **vm, jsize *n) {
	return JNI_GetCreatedJavaVMs(vm, 1, n);
}

static jint jb_CreateJavaVM(JavaVM **vm, JNIEnv **env, char **opts, int n, jint version, jboolean ignore) {
	JavaVMOption *options = calloc(n > 0 ? n : 1, sizeof(JavaVMOption));
	if (options == NULL) {
		return JNI_ENOMEM;
	}
	for (int i = 0; i < n; i++) {
		options[i].optionString = opts[i];
	}
	JavaVMInitArgs args;
	args.version = version;
	args.nOptions = n;
	args.options = options;
	args.ignoreUnrecognized = ignore;
	jint rc = JNI_CreateJavaVM(vm, (void **)env, &args);
	free(options);
	return rc;
}
*/
import "C"

import (
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/jvm-bridge/errors"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/raw"
)

func init() {
	jni.RegisterLoader(Load)
}

var (
	loadOnce sync.Once
	loadedVM raw.VM
	loadErr  error
)

// Load returns the process virtual machine, creating it from
// OptionsFromEnv if none exists yet.
func Load() (raw.VM, error) {
	return LoadWith(OptionsFromEnv())
}

// LoadWith is Load with explicit options. Only the first call has an effect;
// a process cannot host a second virtual machine.
func LoadWith(opts Options) (raw.VM, error) {
	loadOnce.Do(func() {
		loadedVM, loadErr = load(opts)
	})
	return loadedVM, loadErr
}

func load(opts Options) (raw.VM, error) {
	var (
		vm *C.JavaVM
		n  C.jsize
	)
	if rc := C.jb_GetCreatedJavaVMs(&vm, &n); rc != C.JNI_OK {
		return raw.VM{}, errors.New(errors.PhaseLoad, errors.KindInternal).
			Member("JNI_GetCreatedJavaVMs").
			Value(int32(rc)).
			Build()
	}
	if n > 0 && vm != nil {
		Logger().Info("using existing virtual machine")
		return wrap(vm)
	}

	args := opts.Args()
	cargs := make([]*C.char, len(args))
	for i, a := range args {
		cargs[i] = C.CString(a)
	}
	defer func() {
		for _, p := range cargs {
			C.free(unsafe.Pointer(p))
		}
	}()
	var argv **C.char
	if len(cargs) > 0 {
		argv = (**C.char)(C.malloc(C.size_t(len(cargs)) * C.size_t(unsafe.Sizeof(cargs[0]))))
		defer C.free(unsafe.Pointer(argv))
		copy(unsafe.Slice(argv, len(cargs)), cargs)
	}

	ignore := C.jboolean(C.JNI_FALSE)
	if opts.IgnoreUnrecognized {
		ignore = C.JNI_TRUE
	}

	// The creating thread comes back attached; detach it right away so every
	// attachment goes through the attach manager.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var env *C.JNIEnv
	rc := C.jb_CreateJavaVM(&vm, &env, argv, C.int(len(cargs)), C.jint(opts.version()), ignore)
	if rc != C.JNI_OK {
		return raw.VM{}, errors.New(errors.PhaseLoad, errors.KindInternal).
			Member("JNI_CreateJavaVM").
			Value(int32(rc)).
			Detail("options %q", args).
			Build()
	}
	if rc := C.jb_DetachCurrentThread(vm); rc != C.JNI_OK {
		Logger().Warn("couldn't detach creating thread", zap.Int32("code", int32(rc)))
	}
	Logger().Info("virtual machine created", zap.Strings("options", args))
	return wrap(vm)
}

func wrap(vm *C.JavaVM) (raw.VM, error) {
	h, ok := raw.NewVM(uintptr(unsafe.Pointer(vm)), &vmFuncs)
	if !ok {
		return raw.VM{}, errors.Internal(errors.PhaseLoad, "virtual machine handle is null")
	}
	return h, nil
}

func vmOf(vm uintptr) *C.JavaVM        { return (*C.JavaVM)(unsafe.Pointer(vm)) }
func envOf(env uintptr) *C.JNIEnv      { return (*C.JNIEnv)(unsafe.Pointer(env)) }
func ref(obj uintptr) C.jobject        { return C.jobject(unsafe.Pointer(obj)) }
func method(m uintptr) C.jmethodID     { return C.jmethodID(unsafe.Pointer(m)) }
func addr(obj C.jobject) uintptr       { return uintptr(unsafe.Pointer(obj)) }
func methodAddr(m C.jmethodID) uintptr { return uintptr(unsafe.Pointer(m)) }

func values(args []raw.Value) *C.jvalue {
	if len(args) == 0 {
		return nil
	}
	return (*C.jvalue)(unsafe.Pointer(&args[0]))
}

// cstring encodes s in modified UTF-8 for the runtime. The caller frees it.
func cstring(s string) *C.char {
	return C.CString(string(EncodeModified(s)))
}

var vmFuncs = raw.VMFuncs{
	GetEnv: func(vm uintptr, version int32) (uintptr, int32) {
		var env *C.JNIEnv
		rc := C.jb_GetEnv(vmOf(vm), &env, C.jint(version))
		return uintptr(unsafe.Pointer(env)), int32(rc)
	},
	AttachCurrentThread: func(vm uintptr) (uintptr, int32) {
		var env *C.JNIEnv
		rc := C.jb_AttachCurrentThread(vmOf(vm), &env)
		return uintptr(unsafe.Pointer(env)), int32(rc)
	},
	AttachCurrentThreadAsDaemon: func(vm uintptr) (uintptr, int32) {
		var env *C.JNIEnv
		rc := C.jb_AttachCurrentThreadAsDaemon(vmOf(vm), &env)
		return uintptr(unsafe.Pointer(env)), int32(rc)
	},
	DetachCurrentThread: func(vm uintptr) int32 {
		return int32(C.jb_DetachCurrentThread(vmOf(vm)))
	},
	Env: &envFuncs,
}

var envFuncs = raw.EnvFuncs{
	GetVersion: func(env uintptr) int32 {
		return int32(C.jb_GetVersion(envOf(env)))
	},

	FindClass: func(env uintptr, name string) uintptr {
		cname := cstring(name)
		defer C.free(unsafe.Pointer(cname))
		return addr(C.jb_FindClass(envOf(env), cname))
	},

	Throw: func(env uintptr, obj uintptr) int32 {
		return int32(C.jb_Throw(envOf(env), ref(obj)))
	},
	ThrowNew: func(env uintptr, class uintptr, msg string) int32 {
		cmsg := cstring(msg)
		defer C.free(unsafe.Pointer(cmsg))
		return int32(C.jb_ThrowNew(envOf(env), ref(class), cmsg))
	},
	ExceptionOccurred: func(env uintptr) uintptr {
		return addr(C.jb_ExceptionOccurred(envOf(env)))
	},
	ExceptionCheck: func(env uintptr) bool {
		return C.jb_ExceptionCheck(envOf(env)) == C.JNI_TRUE
	},
	ExceptionClear: func(env uintptr) {
		C.jb_ExceptionClear(envOf(env))
	},

	NewLocalRef: func(env uintptr, obj uintptr) uintptr {
		return addr(C.jb_NewLocalRef(envOf(env), ref(obj)))
	},
	DeleteLocalRef: func(env uintptr, obj uintptr) {
		C.jb_DeleteLocalRef(envOf(env), ref(obj))
	},
	NewGlobalRef: func(env uintptr, obj uintptr) uintptr {
		return addr(C.jb_NewGlobalRef(envOf(env), ref(obj)))
	},
	DeleteGlobalRef: func(env uintptr, obj uintptr) {
		C.jb_DeleteGlobalRef(envOf(env), ref(obj))
	},
	IsSameObject: func(env uintptr, a, b uintptr) bool {
		return C.jb_IsSameObject(envOf(env), ref(a), ref(b)) == C.JNI_TRUE
	},

	GetObjectClass: func(env uintptr, obj uintptr) uintptr {
		return addr(C.jb_GetObjectClass(envOf(env), ref(obj)))
	},
	IsInstanceOf: func(env uintptr, obj, class uintptr) bool {
		return C.jb_IsInstanceOf(envOf(env), ref(obj), ref(class)) == C.JNI_TRUE
	},

	GetMethodID: func(env uintptr, class uintptr, name, sig string) uintptr {
		cname, csig := cstring(name), cstring(sig)
		defer C.free(unsafe.Pointer(cname))
		defer C.free(unsafe.Pointer(csig))
		return methodAddr(C.jb_GetMethodID(envOf(env), ref(class), cname, csig))
	},
	GetStaticMethodID: func(env uintptr, class uintptr, name, sig string) uintptr {
		cname, csig := cstring(name), cstring(sig)
		defer C.free(unsafe.Pointer(cname))
		defer C.free(unsafe.Pointer(csig))
		return methodAddr(C.jb_GetStaticMethodID(envOf(env), ref(class), cname, csig))
	},

	NewObjectA: func(env uintptr, class, m uintptr, args []raw.Value) uintptr {
		return addr(C.jb_NewObjectA(envOf(env), ref(class), method(m), values(args)))
	},

	CallObjectMethodA: func(env uintptr, obj, m uintptr, args []raw.Value) uintptr {
		return addr(C.jb_CallObjectMethodA(envOf(env), ref(obj), method(m), values(args)))
	},
	CallBooleanMethodA: func(env uintptr, obj, m uintptr, args []raw.Value) bool {
		return C.jb_CallBooleanMethodA(envOf(env), ref(obj), method(m), values(args)) == C.JNI_TRUE
	},
	CallIntMethodA: func(env uintptr, obj, m uintptr, args []raw.Value) int32 {
		return int32(C.jb_CallIntMethodA(envOf(env), ref(obj), method(m), values(args)))
	},
	CallLongMethodA: func(env uintptr, obj, m uintptr, args []raw.Value) int64 {
		return int64(C.jb_CallLongMethodA(envOf(env), ref(obj), method(m), values(args)))
	},
	CallDoubleMethodA: func(env uintptr, obj, m uintptr, args []raw.Value) float64 {
		return float64(C.jb_CallDoubleMethodA(envOf(env), ref(obj), method(m), values(args)))
	},
	CallVoidMethodA: func(env uintptr, obj, m uintptr, args []raw.Value) {
		C.jb_CallVoidMethodA(envOf(env), ref(obj), method(m), values(args))
	},

	CallStaticObjectMethodA: func(env uintptr, class, m uintptr, args []raw.Value) uintptr {
		return addr(C.jb_CallStaticObjectMethodA(envOf(env), ref(class), method(m), values(args)))
	},
	CallStaticIntMethodA: func(env uintptr, class, m uintptr, args []raw.Value) int32 {
		return int32(C.jb_CallStaticIntMethodA(envOf(env), ref(class), method(m), values(args)))
	},
	CallStaticVoidMethodA: func(env uintptr, class, m uintptr, args []raw.Value) {
		C.jb_CallStaticVoidMethodA(envOf(env), ref(class), method(m), values(args))
	},

	NewStringUTF: func(env uintptr, s string) uintptr {
		cs := cstring(s)
		defer C.free(unsafe.Pointer(cs))
		return addr(C.jb_NewStringUTF(envOf(env), cs))
	},
	GetStringUTF: func(env uintptr, str uintptr) (string, bool) {
		e, s := envOf(env), ref(str)
		n := C.jb_GetStringUTFLength(e, s)
		chars := C.jb_GetStringUTFChars(e, s)
		if chars == nil {
			return "", false
		}
		defer C.jb_ReleaseStringUTFChars(e, s, chars)

		decoded, err := DecodeModified(C.GoBytes(unsafe.Pointer(chars), C.int(n)))
		if err != nil {
			Logger().Warn("runtime returned invalid modified utf-8", zap.Error(err))
			return "", false
		}
		return decoded, true
	},
}
