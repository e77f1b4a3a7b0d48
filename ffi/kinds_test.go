package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElemKindSizes(t *testing.T) {
	want := map[ElemKind]uint32{
		ElemBool: 1, ElemChar8: 1, ElemChar16: 2,
		ElemInt8: 1, ElemInt16: 2, ElemInt32: 4, ElemInt64: 8,
		ElemUint8: 1, ElemUint16: 2, ElemUint32: 4, ElemUint64: 8,
		ElemPointer: 4, ElemFloat32: 4, ElemFloat64: 8,
		ElemString: 12, ElemVariant: 32,
		ElemVec2: 8, ElemVec3: 12, ElemVec4: 16, ElemMat4x4: 64,
	}
	assert.Len(t, want, NumElemKinds)
	for k, size := range want {
		assert.Equal(t, size, k.Size(), "kind %s", k)
	}
}

func TestElemKindNames(t *testing.T) {
	assert.Equal(t, "bool", ElemBool.String())
	assert.Equal(t, "float", ElemFloat32.String())
	assert.Equal(t, "double", ElemFloat64.String())
	assert.Equal(t, "variant", ElemVariant.String())
	assert.Equal(t, "matrix4x4", ElemMat4x4.String())
}

func TestElemKindUnknownPanics(t *testing.T) {
	assert.Panics(t, func() { ElemKind(NumElemKinds).Size() })
	assert.Panics(t, func() { ElemKind(-1).Size() })
}
