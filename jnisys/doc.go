// Package jnisys is the native backend: it binds raw's function tables to a
// real Java virtual machine through cgo and the JNI invocation API.
//
// The cgo part is only built with the jni build tag, since it needs the JDK
// headers and libjvm at build time:
//
//	CGO_CFLAGS="-I$JAVA_HOME/include -I$JAVA_HOME/include/linux" \
//	CGO_LDFLAGS="-L$JAVA_HOME/lib/server" \
//	go build -tags jni ./...
//
// Importing the package registers Load as the loader behind jni.Default. The
// first call creates the virtual machine with -Xcheck:jni, the class path
// from CLASSPATH and extra options from JVMBRIDGE_OPTS, unless the process
// already has one, which is then reused.
//
// Strings cross the boundary in the runtime's modified UTF-8 encoding;
// EncodeModified and DecodeModified convert it and are available without
// the build tag.
package jnisys
