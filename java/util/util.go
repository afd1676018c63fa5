// Package util declares type tags and call stubs for the java.util classes
// the bridge exercises.
package util

import (
	"github.com/wippyai/jvm-bridge/java/lang"
)

type (
	List      struct{}
	ArrayList struct{}
)

func (List) JNIName() string      { return "java/util/List" }
func (ArrayList) JNIName() string { return "java/util/ArrayList" }

func (List) AsObject() lang.Object { return lang.Object{} }

func (ArrayList) AsList() List          { return List{} }
func (ArrayList) AsObject() lang.Object { return lang.Object{} }
