package foreign

import (
	"fmt"
	"reflect"

	"github.com/plugbridge/plugbridge-go/ffi"
)

// Enum constrains the element type of an enum vector to types whose
// underlying representation is a fixed-width integer.
type Enum interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NewEnumVector constructs a foreign vector whose elements are an
// integer-backed enum type E. The vector marshals through the entry
// points of E's underlying integer kind, so the foreign representation
// is bit-identical to a vector of that integer type.
func NewEnumVector[E Enum](env *ffi.Env, data []E) *Vector[E] {
	return newVector(env, enumOps[E](), data)
}

func enumOps[E Enum]() ops[E] {
	t := reflect.TypeFor[E]()
	var kind ffi.ElemKind
	var from func(uint64) E
	switch t.Kind() {
	case reflect.Int8:
		kind, from = ffi.ElemInt8, func(r uint64) E { return E(int8(r)) }
	case reflect.Int16:
		kind, from = ffi.ElemInt16, func(r uint64) E { return E(int16(r)) }
	case reflect.Int32:
		kind, from = ffi.ElemInt32, func(r uint64) E { return E(int32(r)) }
	case reflect.Int64:
		kind, from = ffi.ElemInt64, func(r uint64) E { return E(int64(r)) }
	case reflect.Uint8:
		kind, from = ffi.ElemUint8, func(r uint64) E { return E(uint8(r)) }
	case reflect.Uint16:
		kind, from = ffi.ElemUint16, func(r uint64) E { return E(uint16(r)) }
	case reflect.Uint32:
		kind, from = ffi.ElemUint32, func(r uint64) E { return E(uint32(r)) }
	case reflect.Uint64:
		kind, from = ffi.ElemUint64, func(r uint64) E { return E(r) }
	default:
		panic(fmt.Sprintf("foreign: %s is not an integer-backed enum type", t))
	}
	if uint32(t.Size()) != kind.Size() {
		panic(fmt.Sprintf("foreign: enum type %s is %d bytes, kind %s expects %d",
			t, t.Size(), kind, kind.Size()))
	}
	return intOps(kind, func(v E) uint64 { return uint64(v) }, from)
}
