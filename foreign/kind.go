// Package foreign implements the host-owned container types a plugin
// exchanges with its host: an owned string, a generic dynamic vector
// instantiated per element kind, and a tagged-union variant. All three
// live on the foreign heap at 32-bit offsets; every operation calls
// through the entry points bound by package ffi, and ownership is
// manual: each live container is destroyed through its foreign destroy
// entry point exactly once.
package foreign

import (
	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/geom"
)

// Char8 is a distinct 8-bit character kind. It shares int8's width but
// binds its own foreign vector instantiation.
type Char8 int8

// Char16 is a distinct 16-bit character kind.
type Char16 uint16

// Pointer is an opaque pointer-sized handle in the foreign 32-bit
// address space.
type Pointer uint32

// Kind is the variant discriminant. The numeric values are the ABI:
// they are the byte the foreign side stores at the variant's
// discriminant offset, so the order must not change.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindChar8
	KindChar16
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindPointer
	KindFloat32
	KindFloat64
	KindFunction
	KindString
	KindAny
	KindArrayBool
	KindArrayChar8
	KindArrayChar16
	KindArrayInt8
	KindArrayInt16
	KindArrayInt32
	KindArrayInt64
	KindArrayUint8
	KindArrayUint16
	KindArrayUint32
	KindArrayUint64
	KindArrayPointer
	KindArrayFloat32
	KindArrayFloat64
	KindArrayString
	KindArrayAny
	KindArrayVec2
	KindArrayVec3
	KindArrayVec4
	KindArrayMat4x4
	KindVec2
	KindVec3
	KindVec4
	KindMat4x4
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid", KindVoid: "void", KindBool: "bool",
	KindChar8: "char8", KindChar16: "char16",
	KindInt8: "int8", KindInt16: "int16", KindInt32: "int32", KindInt64: "int64",
	KindUint8: "uint8", KindUint16: "uint16", KindUint32: "uint32", KindUint64: "uint64",
	KindPointer: "pointer", KindFloat32: "float", KindFloat64: "double",
	KindFunction: "function", KindString: "string", KindAny: "any",
	KindArrayBool: "array[bool]", KindArrayChar8: "array[char8]", KindArrayChar16: "array[char16]",
	KindArrayInt8: "array[int8]", KindArrayInt16: "array[int16]", KindArrayInt32: "array[int32]",
	KindArrayInt64: "array[int64]", KindArrayUint8: "array[uint8]", KindArrayUint16: "array[uint16]",
	KindArrayUint32: "array[uint32]", KindArrayUint64: "array[uint64]", KindArrayPointer: "array[pointer]",
	KindArrayFloat32: "array[float]", KindArrayFloat64: "array[double]", KindArrayString: "array[string]",
	KindArrayAny: "array[any]", KindArrayVec2: "array[vector2]", KindArrayVec3: "array[vector3]",
	KindArrayVec4: "array[vector4]", KindArrayMat4x4: "array[matrix4x4]",
	KindVec2: "vector2", KindVec3: "vector3", KindVec4: "vector4", KindMat4x4: "matrix4x4",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// IsArray reports whether the kind is one of the vector payload kinds.
func (k Kind) IsArray() bool {
	_, ok := k.Elem()
	return ok
}

// Elem maps an array kind to the element kind whose foreign entry
// points back it.
func (k Kind) Elem() (ffi.ElemKind, bool) {
	if k < KindArrayBool || k > KindArrayMat4x4 {
		return 0, false
	}
	return ffi.ElemKind(k - KindArrayBool), true
}

// KindOf infers the variant discriminant for a native Go value. nil
// maps to KindInvalid. A value outside the supported payload kinds is a
// programming error and panics: the variant cannot represent it, and
// guessing a representation would corrupt the discriminant contract.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindInvalid
	case bool:
		return KindBool
	case Char8:
		return KindChar8
	case Char16:
		return KindChar16
	case int8:
		return KindInt8
	case int16:
		return KindInt16
	case int32:
		return KindInt32
	case int64:
		return KindInt64
	case uint8:
		return KindUint8
	case uint16:
		return KindUint16
	case uint32:
		return KindUint32
	case uint64:
		return KindUint64
	case Pointer:
		return KindPointer
	case float32:
		return KindFloat32
	case float64:
		return KindFloat64
	case string:
		return KindString
	case []bool:
		return KindArrayBool
	case []Char8:
		return KindArrayChar8
	case []Char16:
		return KindArrayChar16
	case []int8:
		return KindArrayInt8
	case []int16:
		return KindArrayInt16
	case []int32:
		return KindArrayInt32
	case []int64:
		return KindArrayInt64
	case []uint8:
		return KindArrayUint8
	case []uint16:
		return KindArrayUint16
	case []uint32:
		return KindArrayUint32
	case []uint64:
		return KindArrayUint64
	case []Pointer:
		return KindArrayPointer
	case []float32:
		return KindArrayFloat32
	case []float64:
		return KindArrayFloat64
	case []string:
		return KindArrayString
	case []any:
		return KindArrayAny
	case []geom.Vec2:
		return KindArrayVec2
	case []geom.Vec3:
		return KindArrayVec3
	case []geom.Vec4:
		return KindArrayVec4
	case []geom.Mat4x4:
		return KindArrayMat4x4
	case geom.Vec2:
		return KindVec2
	case geom.Vec3:
		return KindVec3
	case geom.Vec4:
		return KindVec4
	default:
		panic("foreign: unsupported variant payload type")
	}
}
