package foreign

import (
	"encoding/binary"
	"math"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/geom"
)

// Variant is an owned, foreign-heap-backed tagged union. The 32-byte
// image at addr holds the payload at offset 0 and the discriminant byte
// at offset 24; the remaining bytes are padding. Payload and
// discriminant are always updated through a single 32-byte write, so a
// foreign observer never sees a discriminant paired with a stale
// payload.
type Variant struct {
	env       *ffi.Env
	addr      uint32
	destroyed bool
}

// NewVariant allocates a variant slot and constructs it from a native
// value. See KindOf for the supported payload types; nil constructs an
// invalid (empty) variant.
func NewVariant(env *ffi.Env, v any) *Variant {
	addr := env.Alloc(variantSize)
	constructVariantAt(env, addr, v)
	return &Variant{env: env, addr: addr}
}

// AdoptVariant wraps an already-constructed foreign variant at addr.
// The caller hands over ownership.
func AdoptVariant(env *ffi.Env, addr uint32) *Variant {
	return &Variant{env: env, addr: addr}
}

// constructVariantAt writes a fresh variant image at addr. The previous
// contents, if any, are not released; the caller guarantees the slot
// holds no live payload.
func constructVariantAt(env *ffi.Env, addr uint32, v any) {
	img := make([]byte, variantSize)
	img[variantDisc] = byte(KindOf(v))
	switch tv := v.(type) {
	case nil:
	case bool:
		if tv {
			img[0] = 1
		}
	case Char8:
		img[0] = byte(tv)
	case Char16:
		binary.LittleEndian.PutUint16(img, uint16(tv))
	case int8:
		img[0] = byte(tv)
	case int16:
		binary.LittleEndian.PutUint16(img, uint16(tv))
	case int32:
		binary.LittleEndian.PutUint32(img, uint32(tv))
	case int64:
		binary.LittleEndian.PutUint64(img, uint64(tv))
	case uint8:
		img[0] = tv
	case uint16:
		binary.LittleEndian.PutUint16(img, tv)
	case uint32:
		binary.LittleEndian.PutUint32(img, tv)
	case uint64:
		binary.LittleEndian.PutUint64(img, tv)
	case Pointer:
		binary.LittleEndian.PutUint32(img, uint32(tv))
	case float32:
		binary.LittleEndian.PutUint32(img, math.Float32bits(tv))
	case float64:
		binary.LittleEndian.PutUint64(img, math.Float64bits(tv))
	case string:
		moveString(env, img, tv)
	case []bool:
		moveVector(env, img, boolOps(), tv)
	case []Char8:
		moveVector(env, img, char8Ops(), tv)
	case []Char16:
		moveVector(env, img, char16Ops(), tv)
	case []int8:
		moveVector(env, img, int8Ops(), tv)
	case []int16:
		moveVector(env, img, int16Ops(), tv)
	case []int32:
		moveVector(env, img, int32Ops(), tv)
	case []int64:
		moveVector(env, img, int64Ops(), tv)
	case []uint8:
		moveVector(env, img, uint8Ops(), tv)
	case []uint16:
		moveVector(env, img, uint16Ops(), tv)
	case []uint32:
		moveVector(env, img, uint32Ops(), tv)
	case []uint64:
		moveVector(env, img, uint64Ops(), tv)
	case []Pointer:
		moveVector(env, img, pointerOps(), tv)
	case []float32:
		moveVector(env, img, float32Ops(), tv)
	case []float64:
		moveVector(env, img, float64Ops(), tv)
	case []string:
		moveVector(env, img, stringElemOps(), tv)
	case []any:
		moveVector(env, img, anyElemOps(), tv)
	case []geom.Vec2:
		moveVector(env, img, vec2Ops(), tv)
	case []geom.Vec3:
		moveVector(env, img, vec3Ops(), tv)
	case []geom.Vec4:
		moveVector(env, img, vec4Ops(), tv)
	case []geom.Mat4x4:
		moveVector(env, img, mat4x4Ops(), tv)
	case geom.Vec2:
		tv.Put(img)
	case geom.Vec3:
		tv.Put(img)
	case geom.Vec4:
		tv.Put(img)
	}
	env.WriteBytes(addr, img)
}

// moveString constructs a temporary foreign string and moves its
// container struct into the variant image. Only the temporary slot is
// freed; the string's storage now belongs to the variant and is
// released by the foreign destroy entry point.
func moveString(env *ffi.Env, img []byte, s string) {
	tmp := env.Alloc(stringSize)
	constructStringAt(env, tmp, s)
	copy(img[:stringSize], env.ReadBytes(tmp, stringSize))
	env.Free(tmp, stringSize)
}

// moveVector does the same for a vector payload.
func moveVector[T any](env *ffi.Env, img []byte, o ops[T], data []T) {
	tmp := env.Alloc(vectorSize)
	constructVectorAt(env, tmp, o, data)
	copy(img[:vectorSize], env.ReadBytes(tmp, vectorSize))
	env.Free(tmp, vectorSize)
}

// variantValueAt copies the payload of the variant at addr out to a
// native value. An unrecognized discriminant is treated as invalid and
// yields nil rather than a crash.
func variantValueAt(env *ffi.Env, addr uint32) any {
	img := env.ReadBytes(addr, variantSize)
	kind := Kind(img[variantDisc])
	if e, ok := kind.Elem(); ok {
		return arrayValueAt(env, addr, e)
	}
	switch kind {
	case KindBool:
		return img[0] != 0
	case KindChar8:
		return Char8(img[0])
	case KindChar16:
		return Char16(binary.LittleEndian.Uint16(img))
	case KindInt8:
		return int8(img[0])
	case KindInt16:
		return int16(binary.LittleEndian.Uint16(img))
	case KindInt32:
		return int32(binary.LittleEndian.Uint32(img))
	case KindInt64:
		return int64(binary.LittleEndian.Uint64(img))
	case KindUint8:
		return img[0]
	case KindUint16:
		return binary.LittleEndian.Uint16(img)
	case KindUint32:
		return binary.LittleEndian.Uint32(img)
	case KindUint64:
		return binary.LittleEndian.Uint64(img)
	case KindPointer, KindFunction:
		return Pointer(binary.LittleEndian.Uint32(img))
	case KindFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(img))
	case KindFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(img))
	case KindString:
		// The string struct sits at offset 0, so the variant address
		// doubles as the string address.
		return string(stringContentsAt(env, addr))
	case KindVec2:
		return geom.Vec2From(img)
	case KindVec3:
		return geom.Vec3From(img)
	case KindVec4:
		return geom.Vec4From(img)
	default:
		return nil
	}
}

// arrayValueAt copies an array payload out as the Go slice type
// matching its element kind.
func arrayValueAt(env *ffi.Env, addr uint32, e ffi.ElemKind) any {
	switch e {
	case ffi.ElemBool:
		return vectorValuesAt(env, addr, boolOps())
	case ffi.ElemChar8:
		return vectorValuesAt(env, addr, char8Ops())
	case ffi.ElemChar16:
		return vectorValuesAt(env, addr, char16Ops())
	case ffi.ElemInt8:
		return vectorValuesAt(env, addr, int8Ops())
	case ffi.ElemInt16:
		return vectorValuesAt(env, addr, int16Ops())
	case ffi.ElemInt32:
		return vectorValuesAt(env, addr, int32Ops())
	case ffi.ElemInt64:
		return vectorValuesAt(env, addr, int64Ops())
	case ffi.ElemUint8:
		return vectorValuesAt(env, addr, uint8Ops())
	case ffi.ElemUint16:
		return vectorValuesAt(env, addr, uint16Ops())
	case ffi.ElemUint32:
		return vectorValuesAt(env, addr, uint32Ops())
	case ffi.ElemUint64:
		return vectorValuesAt(env, addr, uint64Ops())
	case ffi.ElemPointer:
		return vectorValuesAt(env, addr, pointerOps())
	case ffi.ElemFloat32:
		return vectorValuesAt(env, addr, float32Ops())
	case ffi.ElemFloat64:
		return vectorValuesAt(env, addr, float64Ops())
	case ffi.ElemString:
		return vectorValuesAt(env, addr, stringElemOps())
	case ffi.ElemVariant:
		return vectorValuesAt(env, addr, anyElemOps())
	case ffi.ElemVec2:
		return vectorValuesAt(env, addr, vec2Ops())
	case ffi.ElemVec3:
		return vectorValuesAt(env, addr, vec3Ops())
	case ffi.ElemVec4:
		return vectorValuesAt(env, addr, vec4Ops())
	default:
		return vectorValuesAt(env, addr, mat4x4Ops())
	}
}

// destroyVariantAt releases whatever payload the variant at addr
// currently holds. The foreign side dispatches on the stored
// discriminant, so owned payloads are released recursively.
func destroyVariantAt(env *ffi.Env, addr uint32) {
	env.Call(&env.Caps().DestroyVariant, uint64(addr))
}

// Addr returns the foreign address of the variant image.
func (va *Variant) Addr() uint32 {
	va.live()
	return va.addr
}

// Current returns the discriminant the variant currently holds.
func (va *Variant) Current() Kind {
	va.live()
	return Kind(va.env.ReadBytes(va.addr+variantDisc, 1)[0])
}

// Get copies the payload out as a native value. Invalid, void, and
// unrecognized discriminants yield nil. Owned payloads are deep-copied;
// mutating the result does not affect the variant.
func (va *Variant) Get() any {
	va.live()
	return variantValueAt(va.env, va.addr)
}

// Set replaces the payload. The previous payload is released first,
// then the new image is written in a single store.
func (va *Variant) Set(v any) {
	va.live()
	destroyVariantAt(va.env, va.addr)
	constructVariantAt(va.env, va.addr, v)
}

// Clone constructs an independent variant holding a deep copy of the
// payload.
func (va *Variant) Clone() *Variant {
	return NewVariant(va.env, va.Get())
}

// Destroy releases the payload and the variant slot. Must be called
// exactly once per live variant; a second call panics.
func (va *Variant) Destroy() {
	va.live()
	destroyVariantAt(va.env, va.addr)
	va.env.Free(va.addr, variantSize)
	va.destroyed = true
}

func (va *Variant) live() {
	if va.destroyed {
		panic("foreign: use of destroyed variant")
	}
}
