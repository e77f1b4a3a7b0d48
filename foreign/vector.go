package foreign

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/geom"
)

// ops binds one element kind's marshaling to the foreign entry points
// backing it. Each supported kind gets exactly one ops value, mirroring
// the foreign side's one-template-instantiation-per-kind requirement;
// the five foreign funcs are looked up from the Env by kind, so a
// container can never mix one kind's entry points with another's.
type ops[T any] struct {
	kind ffi.ElemKind
	// enc marshals one element at a foreign address. For owned kinds it
	// constructs a temporary container there.
	enc func(env *ffi.Env, addr uint32, v T)
	// dec reads one element from a foreign address.
	dec func(env *ffi.Env, addr uint32) T
	// drop destroys a temporary element constructed by enc, after the
	// foreign side has deep-copied it. Nil for plain value kinds.
	drop func(env *ffi.Env, addr uint32)
}

// Vector is an owned, foreign-heap-backed contiguous array of one
// element kind. The three-word container struct lives at addr; length
// is always derived through the foreign size accessor, never assumed.
type Vector[T any] struct {
	env       *ffi.Env
	addr      uint32
	ops       ops[T]
	destroyed bool
}

func (v *Vector[T]) funcs() *ffi.VectorFuncs {
	return &v.env.Caps().Vectors[v.ops.kind]
}

func newVector[T any](env *ffi.Env, o ops[T], data []T) *Vector[T] {
	addr := env.Alloc(vectorSize)
	constructVectorAt(env, addr, o, data)
	return &Vector[T]{env: env, addr: addr, ops: o}
}

// constructVectorAt initializes the vector struct at addr from data.
// Elements are marshaled into a scratch block, deep-copied by the
// foreign construct call, and any owned temporaries are destroyed
// afterwards (ownership of their copies now rests with the vector).
func constructVectorAt[T any](env *ffi.Env, addr uint32, o ops[T], data []T) {
	fns := &env.Caps().Vectors[o.kind]
	withElements(env, o, data, func(ptr uint32, n uint32) {
		env.Call(&fns.Construct, uint64(addr), uint64(ptr), uint64(n))
	})
}

// withElements marshals data into foreign scratch memory, invokes call
// with the block offset and element count, then destroys temporaries
// and frees the scratch block.
func withElements[T any](env *ffi.Env, o ops[T], data []T, call func(ptr, n uint32)) {
	n := uint32(len(data))
	if n == 0 {
		call(0, 0)
		return
	}
	size := o.kind.Size()
	scratch := env.Alloc(n * size)
	for i, v := range data {
		o.enc(env, scratch+uint32(i)*size, v)
	}
	call(scratch, n)
	if o.drop != nil {
		for i := range data {
			o.drop(env, scratch+uint32(i)*size)
		}
	}
	env.Free(scratch, n*size)
}

// vectorValuesAt copies every element of the vector struct at addr.
func vectorValuesAt[T any](env *ffi.Env, addr uint32, o ops[T]) []T {
	fns := &env.Caps().Vectors[o.kind]
	n := uint32(env.Call1(&fns.Size, uint64(addr)))
	out := make([]T, n)
	if n == 0 {
		return out
	}
	size := o.kind.Size()
	data := uint32(env.Call1(&fns.Data, uint64(addr)))
	for i := range out {
		out[i] = o.dec(env, data+uint32(i)*size)
	}
	return out
}

// destroyVectorAt releases the elements and storage behind the vector
// struct at addr without freeing the slot itself.
func destroyVectorAt(env *ffi.Env, addr uint32, kind ffi.ElemKind) {
	env.Call(&env.Caps().Vectors[kind].Destroy, uint64(addr))
}

// Kind returns the element kind the vector was instantiated for.
func (v *Vector[T]) Kind() ffi.ElemKind { return v.ops.kind }

// Addr returns the foreign address of the container struct.
func (v *Vector[T]) Addr() uint32 {
	v.live()
	return v.addr
}

// Len returns the element count, fetched through the foreign size
// accessor.
func (v *Vector[T]) Len() int {
	v.live()
	return int(v.env.Call1(&v.funcs().Size, uint64(v.addr)))
}

// IsEmpty reports whether the vector has no elements.
func (v *Vector[T]) IsEmpty() bool { return v.Len() == 0 }

// At returns a copy of the element at index i. It panics if i is out of
// range.
func (v *Vector[T]) At(i int) T {
	v.live()
	n := v.Len()
	if i < 0 || i >= n {
		panic(fmt.Sprintf("foreign: vector index %d out of range [0:%d]", i, n))
	}
	data := uint32(v.env.Call1(&v.funcs().Data, uint64(v.addr)))
	return v.ops.dec(v.env, data+uint32(i)*v.ops.kind.Size())
}

// SetAt overwrites the element at index i in place. For owned element
// kinds the previous element is destroyed first. Panics if i is out of
// range.
func (v *Vector[T]) SetAt(i int, val T) {
	v.live()
	n := v.Len()
	if i < 0 || i >= n {
		panic(fmt.Sprintf("foreign: vector index %d out of range [0:%d]", i, n))
	}
	data := uint32(v.env.Call1(&v.funcs().Data, uint64(v.addr)))
	at := data + uint32(i)*v.ops.kind.Size()
	if v.ops.drop != nil {
		v.ops.drop(v.env, at)
	}
	v.ops.enc(v.env, at, val)
}

// Values returns an owned copy of all elements. The result is always
// non-nil; an empty vector yields an empty slice.
func (v *Vector[T]) Values() []T {
	v.live()
	return vectorValuesAt(v.env, v.addr, v.ops)
}

// All iterates over copies of the elements in index order.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, val := range v.Values() {
			if !yield(i, val) {
				return
			}
		}
	}
}

// Set replaces the vector's contents. Elements previously obtained via
// At or Values are unaffected (they are copies); the foreign storage is
// reallocated, so any cached foreign data pointer is invalid afterwards.
func (v *Vector[T]) Set(data []T) {
	v.live()
	fns := v.funcs()
	withElements(v.env, v.ops, data, func(ptr uint32, n uint32) {
		v.env.Call(&fns.Assign, uint64(v.addr), uint64(ptr), uint64(n))
	})
}

// Clone constructs an independent vector with the same contents.
func (v *Vector[T]) Clone() *Vector[T] {
	return newVector(v.env, v.ops, v.Values())
}

// Destroy releases the vector's elements, storage, and container slot.
// Must be called exactly once per live vector; a second call panics.
func (v *Vector[T]) Destroy() {
	v.live()
	destroyVectorAt(v.env, v.addr, v.ops.kind)
	v.env.Free(v.addr, vectorSize)
	v.destroyed = true
}

func (v *Vector[T]) live() {
	if v.destroyed {
		panic("foreign: use of destroyed vector")
	}
}

// ---- element kind bindings ----

// intOps builds ops for a fixed-width integer-representable kind. The
// to/from pair defines the bit-level conversion; only the kind's byte
// width is written and read.
func intOps[T any](kind ffi.ElemKind, to func(T) uint64, from func(uint64) T) ops[T] {
	size := kind.Size()
	return ops[T]{
		kind: kind,
		enc: func(env *ffi.Env, addr uint32, v T) {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], to(v))
			env.WriteBytes(addr, b[:size])
		},
		dec: func(env *ffi.Env, addr uint32) T {
			var b [8]byte
			copy(b[:], env.ReadBytes(addr, size))
			return from(binary.LittleEndian.Uint64(b[:]))
		},
	}
}

func boolOps() ops[bool] {
	return ops[bool]{
		kind: ffi.ElemBool,
		enc: func(env *ffi.Env, addr uint32, v bool) {
			b := []byte{0}
			if v {
				b[0] = 1
			}
			env.WriteBytes(addr, b)
		},
		dec: func(env *ffi.Env, addr uint32) bool {
			return env.ReadBytes(addr, 1)[0] != 0
		},
	}
}

func char8Ops() ops[Char8] {
	return intOps(ffi.ElemChar8, func(v Char8) uint64 { return uint64(v) }, func(r uint64) Char8 { return Char8(int8(r)) })
}

func char16Ops() ops[Char16] {
	return intOps(ffi.ElemChar16, func(v Char16) uint64 { return uint64(v) }, func(r uint64) Char16 { return Char16(r) })
}

func int8Ops() ops[int8] {
	return intOps(ffi.ElemInt8, func(v int8) uint64 { return uint64(v) }, func(r uint64) int8 { return int8(r) })
}

func int16Ops() ops[int16] {
	return intOps(ffi.ElemInt16, func(v int16) uint64 { return uint64(v) }, func(r uint64) int16 { return int16(r) })
}

func int32Ops() ops[int32] {
	return intOps(ffi.ElemInt32, func(v int32) uint64 { return uint64(v) }, func(r uint64) int32 { return int32(r) })
}

func int64Ops() ops[int64] {
	return intOps(ffi.ElemInt64, func(v int64) uint64 { return uint64(v) }, func(r uint64) int64 { return int64(r) })
}

func uint8Ops() ops[uint8] {
	return intOps(ffi.ElemUint8, func(v uint8) uint64 { return uint64(v) }, func(r uint64) uint8 { return uint8(r) })
}

func uint16Ops() ops[uint16] {
	return intOps(ffi.ElemUint16, func(v uint16) uint64 { return uint64(v) }, func(r uint64) uint16 { return uint16(r) })
}

func uint32Ops() ops[uint32] {
	return intOps(ffi.ElemUint32, func(v uint32) uint64 { return uint64(v) }, func(r uint64) uint32 { return uint32(r) })
}

func uint64Ops() ops[uint64] {
	return intOps(ffi.ElemUint64, func(v uint64) uint64 { return v }, func(r uint64) uint64 { return r })
}

func pointerOps() ops[Pointer] {
	return intOps(ffi.ElemPointer, func(v Pointer) uint64 { return uint64(v) }, func(r uint64) Pointer { return Pointer(r) })
}

func float32Ops() ops[float32] {
	return intOps(ffi.ElemFloat32,
		func(v float32) uint64 { return uint64(math.Float32bits(v)) },
		func(r uint64) float32 { return math.Float32frombits(uint32(r)) })
}

func float64Ops() ops[float64] {
	return intOps(ffi.ElemFloat64,
		func(v float64) uint64 { return math.Float64bits(v) },
		func(r uint64) float64 { return math.Float64frombits(r) })
}

func stringElemOps() ops[string] {
	return ops[string]{
		kind: ffi.ElemString,
		enc:  constructStringAt,
		dec: func(env *ffi.Env, addr uint32) string {
			return string(stringContentsAt(env, addr))
		},
		drop: destroyStringAt,
	}
}

func anyElemOps() ops[any] {
	return ops[any]{
		kind: ffi.ElemVariant,
		enc:  constructVariantAt,
		dec:  variantValueAt,
		drop: destroyVariantAt,
	}
}

func vec2Ops() ops[geom.Vec2] {
	return ops[geom.Vec2]{
		kind: ffi.ElemVec2,
		enc: func(env *ffi.Env, addr uint32, v geom.Vec2) {
			b := make([]byte, geom.Vec2Size)
			v.Put(b)
			env.WriteBytes(addr, b)
		},
		dec: func(env *ffi.Env, addr uint32) geom.Vec2 {
			return geom.Vec2From(env.ReadBytes(addr, geom.Vec2Size))
		},
	}
}

func vec3Ops() ops[geom.Vec3] {
	return ops[geom.Vec3]{
		kind: ffi.ElemVec3,
		enc: func(env *ffi.Env, addr uint32, v geom.Vec3) {
			b := make([]byte, geom.Vec3Size)
			v.Put(b)
			env.WriteBytes(addr, b)
		},
		dec: func(env *ffi.Env, addr uint32) geom.Vec3 {
			return geom.Vec3From(env.ReadBytes(addr, geom.Vec3Size))
		},
	}
}

func vec4Ops() ops[geom.Vec4] {
	return ops[geom.Vec4]{
		kind: ffi.ElemVec4,
		enc: func(env *ffi.Env, addr uint32, v geom.Vec4) {
			b := make([]byte, geom.Vec4Size)
			v.Put(b)
			env.WriteBytes(addr, b)
		},
		dec: func(env *ffi.Env, addr uint32) geom.Vec4 {
			return geom.Vec4From(env.ReadBytes(addr, geom.Vec4Size))
		},
	}
}

func mat4x4Ops() ops[geom.Mat4x4] {
	return ops[geom.Mat4x4]{
		kind: ffi.ElemMat4x4,
		enc: func(env *ffi.Env, addr uint32, v geom.Mat4x4) {
			b := make([]byte, geom.Mat4x4Size)
			v.Put(b)
			env.WriteBytes(addr, b)
		},
		dec: func(env *ffi.Env, addr uint32) geom.Mat4x4 {
			return geom.Mat4x4From(env.ReadBytes(addr, geom.Mat4x4Size))
		},
	}
}

// ---- per-kind constructors ----

// NewBoolVector constructs a foreign vector of booleans.
func NewBoolVector(env *ffi.Env, data []bool) *Vector[bool] {
	return newVector(env, boolOps(), data)
}

// NewChar8Vector constructs a foreign vector of 8-bit characters.
func NewChar8Vector(env *ffi.Env, data []Char8) *Vector[Char8] {
	return newVector(env, char8Ops(), data)
}

// NewChar16Vector constructs a foreign vector of 16-bit characters.
func NewChar16Vector(env *ffi.Env, data []Char16) *Vector[Char16] {
	return newVector(env, char16Ops(), data)
}

// NewInt8Vector constructs a foreign vector of int8.
func NewInt8Vector(env *ffi.Env, data []int8) *Vector[int8] {
	return newVector(env, int8Ops(), data)
}

// NewInt16Vector constructs a foreign vector of int16.
func NewInt16Vector(env *ffi.Env, data []int16) *Vector[int16] {
	return newVector(env, int16Ops(), data)
}

// NewInt32Vector constructs a foreign vector of int32.
func NewInt32Vector(env *ffi.Env, data []int32) *Vector[int32] {
	return newVector(env, int32Ops(), data)
}

// NewInt64Vector constructs a foreign vector of int64.
func NewInt64Vector(env *ffi.Env, data []int64) *Vector[int64] {
	return newVector(env, int64Ops(), data)
}

// NewUint8Vector constructs a foreign vector of uint8.
func NewUint8Vector(env *ffi.Env, data []uint8) *Vector[uint8] {
	return newVector(env, uint8Ops(), data)
}

// NewUint16Vector constructs a foreign vector of uint16.
func NewUint16Vector(env *ffi.Env, data []uint16) *Vector[uint16] {
	return newVector(env, uint16Ops(), data)
}

// NewUint32Vector constructs a foreign vector of uint32.
func NewUint32Vector(env *ffi.Env, data []uint32) *Vector[uint32] {
	return newVector(env, uint32Ops(), data)
}

// NewUint64Vector constructs a foreign vector of uint64.
func NewUint64Vector(env *ffi.Env, data []uint64) *Vector[uint64] {
	return newVector(env, uint64Ops(), data)
}

// NewPointerVector constructs a foreign vector of opaque handles.
func NewPointerVector(env *ffi.Env, data []Pointer) *Vector[Pointer] {
	return newVector(env, pointerOps(), data)
}

// NewFloat32Vector constructs a foreign vector of float32.
func NewFloat32Vector(env *ffi.Env, data []float32) *Vector[float32] {
	return newVector(env, float32Ops(), data)
}

// NewFloat64Vector constructs a foreign vector of float64.
func NewFloat64Vector(env *ffi.Env, data []float64) *Vector[float64] {
	return newVector(env, float64Ops(), data)
}

// NewStringVector constructs a foreign vector of foreign strings. Each
// Go string is marshaled through a temporary foreign string that the
// construct call deep-copies.
func NewStringVector(env *ffi.Env, data []string) *Vector[string] {
	return newVector(env, stringElemOps(), data)
}

// NewAnyVector constructs a foreign vector of variants from native
// values. Each value must be a supported variant payload.
func NewAnyVector(env *ffi.Env, data []any) *Vector[any] {
	return newVector(env, anyElemOps(), data)
}

// NewVec2Vector constructs a foreign vector of 2-component vectors.
func NewVec2Vector(env *ffi.Env, data []geom.Vec2) *Vector[geom.Vec2] {
	return newVector(env, vec2Ops(), data)
}

// NewVec3Vector constructs a foreign vector of 3-component vectors.
func NewVec3Vector(env *ffi.Env, data []geom.Vec3) *Vector[geom.Vec3] {
	return newVector(env, vec3Ops(), data)
}

// NewVec4Vector constructs a foreign vector of 4-component vectors.
func NewVec4Vector(env *ffi.Env, data []geom.Vec4) *Vector[geom.Vec4] {
	return newVector(env, vec4Ops(), data)
}

// NewMat4x4Vector constructs a foreign vector of 4x4 matrices.
func NewMat4x4Vector(env *ffi.Env, data []geom.Mat4x4) *Vector[geom.Mat4x4] {
	return newVector(env, mat4x4Ops(), data)
}

// AdoptStringVector wraps an already-constructed foreign string vector
// at addr, as returned through an out-pointer by a host getter. The
// caller hands over ownership.
func AdoptStringVector(env *ffi.Env, addr uint32) *Vector[string] {
	return &Vector[string]{env: env, addr: addr, ops: stringElemOps()}
}
