package ffi

// ElemKind identifies one of the element kinds the foreign side
// instantiates a dedicated vector template for. The order is part of
// the ABI: the binder consumes the capability table's vector blocks in
// this enumeration order, so reordering requires a version bump.
type ElemKind int

const (
	ElemBool ElemKind = iota
	ElemChar8
	ElemChar16
	ElemInt8
	ElemInt16
	ElemInt32
	ElemInt64
	ElemUint8
	ElemUint16
	ElemUint32
	ElemUint64
	ElemPointer
	ElemFloat32
	ElemFloat64
	ElemString
	ElemVariant
	ElemVec2
	ElemVec3
	ElemVec4
	ElemMat4x4

	// NumElemKinds is the number of supported element kinds.
	NumElemKinds = int(ElemMat4x4) + 1
)

var elemNames = [NumElemKinds]string{
	"bool", "char8", "char16",
	"int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64",
	"pointer", "float", "double",
	"string", "variant",
	"vector2", "vector3", "vector4", "matrix4x4",
}

var elemSizes = [NumElemKinds]uint32{
	1, 1, 2,
	1, 2, 4, 8,
	1, 2, 4, 8,
	4, 4, 8,
	12, 32,
	8, 12, 16, 64,
}

// String returns the ABI name of the element kind, as used in the
// capability table's symbol names.
func (k ElemKind) String() string {
	if k < 0 || int(k) >= NumElemKinds {
		return "unknown"
	}
	return elemNames[k]
}

// Size returns the fixed byte size of one element of this kind in
// foreign memory (32-bit offsets, little-endian).
func (k ElemKind) Size() uint32 {
	if k < 0 || int(k) >= NumElemKinds {
		panic("ffi: size of unknown element kind")
	}
	return elemSizes[k]
}
