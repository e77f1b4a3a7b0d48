package foreign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/foreign"
)

type weaponKind uint8

const (
	weaponNone weaponKind = iota
	weaponSword
	weaponBow
)

type errorCode int32

func TestEnumVectorUsesBackingKind(t *testing.T) {
	core, env := newTestEnv(t)

	v := foreign.NewEnumVector(env, []weaponKind{weaponSword, weaponBow, weaponNone})
	defer v.Destroy()

	// The enum marshals through its underlying integer kind's entry
	// points, not a dedicated instantiation.
	assert.Equal(t, ffi.ElemUint8, v.Kind())
	assert.Equal(t, 1, core.Calls["construct_vector_uint8"])
	assert.Equal(t, []weaponKind{weaponSword, weaponBow, weaponNone}, v.Values())
}

func TestEnumVectorBitIdenticalToBackingVector(t *testing.T) {
	_, env := newTestEnv(t)

	ev := foreign.NewEnumVector(env, []errorCode{-2, 0, 1000})
	defer ev.Destroy()
	iv := foreign.NewInt32Vector(env, []int32{-2, 0, 1000})
	defer iv.Destroy()

	require.Equal(t, iv.Kind(), ev.Kind())
	for i := range 3 {
		assert.Equal(t, iv.At(i), int32(ev.At(i)))
	}
}

func TestEnumVectorMutation(t *testing.T) {
	_, env := newTestEnv(t)

	v := foreign.NewEnumVector(env, []errorCode{1, 2})
	defer v.Destroy()

	v.SetAt(0, errorCode(-7))
	assert.Equal(t, errorCode(-7), v.At(0))

	v.Set([]errorCode{9})
	assert.Equal(t, []errorCode{9}, v.Values())
}

func TestEnumVectorSignedRange(t *testing.T) {
	_, env := newTestEnv(t)

	type tiny int8
	v := foreign.NewEnumVector(env, []tiny{-128, -1, 127})
	defer v.Destroy()

	assert.Equal(t, []tiny{-128, -1, 127}, v.Values())
}
