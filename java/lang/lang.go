// Package lang declares type tags for the java.lang classes the bridge uses
// itself.
//
// A tag is an empty struct naming one runtime class. Tags carry the is-a
// relation as witness methods: each AsX method exists exactly when the tagged
// class is assignable to X, so a method expression such as Integer.AsNumber
// is the compile-time proof jni.Upcast asks for.
package lang

type (
	Object                    struct{}
	Throwable                 struct{}
	Exception                 struct{}
	RuntimeException          struct{}
	IndexOutOfBoundsException struct{}
	IllegalArgumentException  struct{}
	Error                     struct{}
	OutOfMemoryError          struct{}
	String                    struct{}
	Class                     struct{}
	Number                    struct{}
	Integer                   struct{}
)

func (Object) JNIName() string                    { return "java/lang/Object" }
func (Throwable) JNIName() string                 { return "java/lang/Throwable" }
func (Exception) JNIName() string                 { return "java/lang/Exception" }
func (RuntimeException) JNIName() string          { return "java/lang/RuntimeException" }
func (IndexOutOfBoundsException) JNIName() string { return "java/lang/IndexOutOfBoundsException" }
func (IllegalArgumentException) JNIName() string  { return "java/lang/IllegalArgumentException" }
func (Error) JNIName() string                     { return "java/lang/Error" }
func (OutOfMemoryError) JNIName() string          { return "java/lang/OutOfMemoryError" }
func (String) JNIName() string                    { return "java/lang/String" }
func (Class) JNIName() string                     { return "java/lang/Class" }
func (Number) JNIName() string                    { return "java/lang/Number" }
func (Integer) JNIName() string                   { return "java/lang/Integer" }
