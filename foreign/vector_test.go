package foreign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/foreign"
	"github.com/plugbridge/plugbridge-go/geom"
)

func TestFloat32VectorRoundTrip(t *testing.T) {
	core, env := newTestEnv(t)

	v := foreign.NewFloat32Vector(env, []float32{1.0, 2.0, 3.0})
	assert.Equal(t, ffi.ElemFloat32, v.Kind())
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []float32{1.0, 2.0, 3.0}, v.Values())
	assert.Equal(t, float32(2.0), v.At(1))

	v.Set([]float32{4.0})
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []float32{4.0}, v.Values())
	assert.Equal(t, 1, core.Calls["assign_vector_float"])

	v.Destroy()
	assert.Equal(t, 1, core.Calls["destroy_vector_float"])
	assert.Zero(t, core.LiveAllocs())
}

func TestVectorScalarKinds(t *testing.T) {
	_, env := newTestEnv(t)

	t.Run("bool", func(t *testing.T) {
		v := foreign.NewBoolVector(env, []bool{true, false, true})
		defer v.Destroy()
		assert.Equal(t, []bool{true, false, true}, v.Values())
	})

	t.Run("int8", func(t *testing.T) {
		v := foreign.NewInt8Vector(env, []int8{-128, 0, 127})
		defer v.Destroy()
		assert.Equal(t, []int8{-128, 0, 127}, v.Values())
	})

	t.Run("int64", func(t *testing.T) {
		v := foreign.NewInt64Vector(env, []int64{-1 << 62, 0, 1<<63 - 1})
		defer v.Destroy()
		assert.Equal(t, []int64{-1 << 62, 0, 1<<63 - 1}, v.Values())
	})

	t.Run("uint16", func(t *testing.T) {
		v := foreign.NewUint16Vector(env, []uint16{0, 0xFFFF})
		defer v.Destroy()
		assert.Equal(t, []uint16{0, 0xFFFF}, v.Values())
	})

	t.Run("char16", func(t *testing.T) {
		v := foreign.NewChar16Vector(env, []foreign.Char16{'a', 0x30C4})
		defer v.Destroy()
		assert.Equal(t, []foreign.Char16{'a', 0x30C4}, v.Values())
	})

	t.Run("pointer", func(t *testing.T) {
		v := foreign.NewPointerVector(env, []foreign.Pointer{0, 0xDEAD})
		defer v.Destroy()
		assert.Equal(t, []foreign.Pointer{0, 0xDEAD}, v.Values())
	})

	t.Run("float64", func(t *testing.T) {
		v := foreign.NewFloat64Vector(env, []float64{-0.5, 1e300})
		defer v.Destroy()
		assert.Equal(t, []float64{-0.5, 1e300}, v.Values())
	})
}

func TestVectorGeomKinds(t *testing.T) {
	_, env := newTestEnv(t)

	t.Run("vec2", func(t *testing.T) {
		in := []geom.Vec2{{X: 1, Y: 2}, {X: 3, Y: 4}}
		v := foreign.NewVec2Vector(env, in)
		defer v.Destroy()
		assert.Equal(t, in, v.Values())
	})

	t.Run("mat4x4", func(t *testing.T) {
		var m geom.Mat4x4
		for i := range m.M {
			m.M[i] = float32(i)
		}
		v := foreign.NewMat4x4Vector(env, []geom.Mat4x4{m})
		defer v.Destroy()
		assert.Equal(t, m, v.At(0))
	})
}

func TestStringVector(t *testing.T) {
	core, env := newTestEnv(t)

	v := foreign.NewStringVector(env, []string{"alpha", "", "gamma"})
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []string{"alpha", "", "gamma"}, v.Values())

	v.SetAt(1, "beta")
	assert.Equal(t, "beta", v.At(1))

	v.Set([]string{"just one"})
	assert.Equal(t, []string{"just one"}, v.Values())

	v.Destroy()
	assert.Equal(t, 1, core.Calls["destroy_vector_string"])
	assert.Zero(t, core.LiveAllocs(), "element storage leaked")
}

func TestAnyVector(t *testing.T) {
	core, env := newTestEnv(t)

	v := foreign.NewAnyVector(env, []any{int32(5), "text", true})
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []any{int32(5), "text", true}, v.Values())

	v.Destroy()
	assert.Zero(t, core.LiveAllocs())
}

func TestVectorEmpty(t *testing.T) {
	core, env := newTestEnv(t)

	v := foreign.NewInt32Vector(env, nil)
	assert.Zero(t, v.Len())
	assert.True(t, v.IsEmpty())
	assert.Empty(t, v.Values())

	v.Set([]int32{1, 2})
	assert.Equal(t, []int32{1, 2}, v.Values())
	v.Set(nil)
	assert.True(t, v.IsEmpty())

	v.Destroy()
	assert.Zero(t, core.LiveAllocs())
}

func TestVectorIndexBounds(t *testing.T) {
	_, env := newTestEnv(t)

	v := foreign.NewInt32Vector(env, []int32{1, 2, 3})
	defer v.Destroy()

	assert.Panics(t, func() { v.At(3) })
	assert.Panics(t, func() { v.At(-1) })
	assert.Panics(t, func() { v.SetAt(3, 9) })
}

func TestVectorSetAt(t *testing.T) {
	_, env := newTestEnv(t)

	v := foreign.NewInt32Vector(env, []int32{1, 2, 3})
	defer v.Destroy()

	v.SetAt(0, 10)
	assert.Equal(t, []int32{10, 2, 3}, v.Values())
}

func TestVectorAll(t *testing.T) {
	_, env := newTestEnv(t)

	v := foreign.NewUint8Vector(env, []uint8{7, 8, 9})
	defer v.Destroy()

	var got []uint8
	for i, e := range v.All() {
		assert.Equal(t, v.At(i), e)
		got = append(got, e)
	}
	assert.Equal(t, []uint8{7, 8, 9}, got)
}

func TestVectorCloneIsIndependent(t *testing.T) {
	_, env := newTestEnv(t)

	v := foreign.NewStringVector(env, []string{"a", "b"})
	c := v.Clone()

	v.Set([]string{"mutated"})
	assert.Equal(t, []string{"a", "b"}, c.Values())

	v.Destroy()
	c.Destroy()
}

func TestVectorDoubleDestroyPanics(t *testing.T) {
	_, env := newTestEnv(t)

	v := foreign.NewBoolVector(env, []bool{true})
	v.Destroy()

	require.PanicsWithValue(t, "foreign: use of destroyed vector", func() { v.Destroy() })
	assert.PanicsWithValue(t, "foreign: use of destroyed vector", func() { v.Len() })
}
