// Package geom defines the plain 2/3/4-component vector and 4x4 matrix
// value types the marshaling layer passes across the host boundary.
// They carry no ownership: field-ordered float32 payloads with fixed
// little-endian layouts (8, 12, 16 and 64 bytes).
package geom

import (
	"encoding/binary"
	"math"
)

// Vec2 is a 2-component float vector.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a 3-component float vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a 4-component float vector.
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4x4 is a 4x4 float matrix, row-major.
type Mat4x4 struct {
	M [16]float32
}

const (
	// Vec2Size is the marshaled size of a Vec2.
	Vec2Size = 8
	// Vec3Size is the marshaled size of a Vec3.
	Vec3Size = 12
	// Vec4Size is the marshaled size of a Vec4.
	Vec4Size = 16
	// Mat4x4Size is the marshaled size of a Mat4x4.
	Mat4x4Size = 64
)

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Put marshals the vector into the first Vec2Size bytes of b.
func (v Vec2) Put(b []byte) {
	putFloat32(b[0:], v.X)
	putFloat32(b[4:], v.Y)
}

// Vec2From unmarshals a Vec2 from the first Vec2Size bytes of b.
func Vec2From(b []byte) Vec2 {
	return Vec2{X: getFloat32(b[0:]), Y: getFloat32(b[4:])}
}

// Put marshals the vector into the first Vec3Size bytes of b.
func (v Vec3) Put(b []byte) {
	putFloat32(b[0:], v.X)
	putFloat32(b[4:], v.Y)
	putFloat32(b[8:], v.Z)
}

// Vec3From unmarshals a Vec3 from the first Vec3Size bytes of b.
func Vec3From(b []byte) Vec3 {
	return Vec3{X: getFloat32(b[0:]), Y: getFloat32(b[4:]), Z: getFloat32(b[8:])}
}

// Put marshals the vector into the first Vec4Size bytes of b.
func (v Vec4) Put(b []byte) {
	putFloat32(b[0:], v.X)
	putFloat32(b[4:], v.Y)
	putFloat32(b[8:], v.Z)
	putFloat32(b[12:], v.W)
}

// Vec4From unmarshals a Vec4 from the first Vec4Size bytes of b.
func Vec4From(b []byte) Vec4 {
	return Vec4{X: getFloat32(b[0:]), Y: getFloat32(b[4:]), Z: getFloat32(b[8:]), W: getFloat32(b[12:])}
}

// Put marshals the matrix into the first Mat4x4Size bytes of b.
func (m Mat4x4) Put(b []byte) {
	for i, f := range m.M {
		putFloat32(b[i*4:], f)
	}
}

// Mat4x4From unmarshals a Mat4x4 from the first Mat4x4Size bytes of b.
func Mat4x4From(b []byte) Mat4x4 {
	var m Mat4x4
	for i := range m.M {
		m.M[i] = getFloat32(b[i*4:])
	}
	return m
}
