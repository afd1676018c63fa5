package util

import (
	"github.com/wippyai/jvm-bridge/java/lang"
	"github.com/wippyai/jvm-bridge/jni"
)

// NewArrayList constructs an empty java.util.ArrayList.
func NewArrayList(env *jni.Env) (*jni.Local[ArrayList], error) {
	cls, err := jni.ClassOf[ArrayList](env)
	if err != nil {
		return nil, err
	}
	ctor, err := jni.ConstructorOf[ArrayList](env, "()V")
	if err != nil {
		return nil, err
	}
	return jni.NewObject[ArrayList](env, cls, ctor)
}

// Size calls List.size.
func Size(env *jni.Env, list jni.Ref) (int32, error) {
	m, err := jni.MethodOf[List](env, "size", "()I")
	if err != nil {
		return 0, err
	}
	return jni.CallInt(env, list, m)
}

// IsEmpty calls List.isEmpty.
func IsEmpty(env *jni.Env, list jni.Ref) (bool, error) {
	m, err := jni.MethodOf[List](env, "isEmpty", "()Z")
	if err != nil {
		return false, err
	}
	return jni.CallBool(env, list, m)
}

// Add calls List.add. elem may be jni.Null().
func Add(env *jni.Env, list jni.Ref, elem jni.Arg) (bool, error) {
	m, err := jni.MethodOf[List](env, "add", "(Ljava/lang/Object;)Z")
	if err != nil {
		return false, err
	}
	return jni.CallBool(env, list, m, elem)
}

// Get calls List.get. A null element is returned as nil.
func Get(env *jni.Env, list jni.Ref, index int32) (*jni.Local[lang.Object], error) {
	m, err := jni.MethodOf[List](env, "get", "(I)Ljava/lang/Object;")
	if err != nil {
		return nil, err
	}
	return jni.CallObject[lang.Object](env, list, m, jni.Int(index))
}

// SubList calls List.subList.
func SubList(env *jni.Env, list jni.Ref, from, to int32) (*jni.Local[List], error) {
	m, err := jni.MethodOf[List](env, "subList", "(II)Ljava/util/List;")
	if err != nil {
		return nil, err
	}
	return jni.CallObject[List](env, list, m, jni.Int(from), jni.Int(to))
}

// Clear calls List.clear.
func Clear(env *jni.Env, list jni.Ref) error {
	m, err := jni.MethodOf[List](env, "clear", "()V")
	if err != nil {
		return err
	}
	return jni.CallVoid(env, list, m)
}
