package foreign

import (
	"bytes"
	"hash/fnv"

	"github.com/plugbridge/plugbridge-go/ffi"
)

// Container struct sizes in foreign memory. Strings and vectors are
// three 32-bit words (data/size/capacity); the variant is a 24-byte
// payload area, a discriminant byte at offset 24, and padding to a
// fixed 32 bytes so 32-bit and 64-bit hosts agree on the layout.
const (
	stringSize  = 12
	vectorSize  = 12
	variantSize = 32
	variantDisc = 24
)

// String is an owned, foreign-heap-backed UTF-8 string. The three-word
// container struct lives at addr in foreign memory; the byte storage it
// points to belongs to the foreign allocator and is only ever released
// through the foreign destroy entry point.
//
// Contents are contractually valid UTF-8 (guaranteed by the foreign
// side, not re-validated here). Any view of the data is only valid
// until the next Set or Destroy; accessors re-fetch pointer and length
// on every call rather than caching them.
type String struct {
	env       *ffi.Env
	addr      uint32
	destroyed bool
}

// NewString constructs an empty foreign string.
func NewString(env *ffi.Env) *String {
	return NewStringFrom(env, "")
}

// NewStringFrom constructs a foreign string holding s.
func NewStringFrom(env *ffi.Env, s string) *String {
	addr := env.Alloc(stringSize)
	constructStringAt(env, addr, s)
	return &String{env: env, addr: addr}
}

// AdoptString wraps an already-constructed foreign string at addr, as
// returned through an out-pointer by a host getter. The caller hands
// over ownership: the returned String's Destroy releases both the
// foreign allocation and the addr slot.
func AdoptString(env *ffi.Env, addr uint32) *String {
	return &String{env: env, addr: addr}
}

// constructStringAt initializes the three-word string struct at addr
// from s. The slot at addr must be uninitialized or already destroyed.
func constructStringAt(env *ffi.Env, addr uint32, s string) {
	env.WithScratch([]byte(s), func(ptr uint32) {
		env.Call(&env.Caps().String.Construct, uint64(addr), uint64(ptr), uint64(len(s)))
	})
}

// destroyStringAt releases the foreign allocation behind the string
// struct at addr without freeing the slot itself.
func destroyStringAt(env *ffi.Env, addr uint32) {
	env.Call(&env.Caps().String.Destroy, uint64(addr))
}

// stringContentsAt copies out the bytes of the string struct at addr.
func stringContentsAt(env *ffi.Env, addr uint32) []byte {
	n := uint32(env.Call1(&env.Caps().String.Length, uint64(addr)))
	if n == 0 {
		return nil
	}
	data := uint32(env.Call1(&env.Caps().String.Data, uint64(addr)))
	return env.ReadBytes(data, n)
}

// Addr returns the foreign address of the container struct, for
// passing the string to host calls that take a string pointer.
func (s *String) Addr() uint32 {
	s.live()
	return s.addr
}

// Len returns the string's byte length, fetched through the foreign
// length accessor.
func (s *String) Len() int {
	s.live()
	return int(s.env.Call1(&s.env.Caps().String.Length, uint64(s.addr)))
}

// IsEmpty reports whether the string has zero length.
func (s *String) IsEmpty() bool {
	return s.Len() == 0
}

// Bytes returns an owned copy of the string's contents.
func (s *String) Bytes() []byte {
	s.live()
	return stringContentsAt(s.env, s.addr)
}

// String returns an owned copy of the contents as a Go string.
func (s *String) String() string {
	return string(s.Bytes())
}

// Set replaces the contents. Any previously obtained view of the data
// is invalid afterwards.
func (s *String) Set(v string) {
	s.live()
	s.env.WithScratch([]byte(v), func(ptr uint32) {
		s.env.Call(&s.env.Caps().String.Assign, uint64(s.addr), uint64(ptr), uint64(len(v)))
	})
}

// Clone constructs an independent foreign string with the same
// contents. The copy has its own foreign allocation; nothing is shared.
func (s *String) Clone() *String {
	return NewStringFrom(s.env, s.String())
}

// Equal reports whether both strings hold the same bytes.
func (s *String) Equal(o *String) bool {
	return bytes.Equal(s.Bytes(), o.Bytes())
}

// Compare orders two strings by byte contents, like bytes.Compare.
func (s *String) Compare(o *String) int {
	return bytes.Compare(s.Bytes(), o.Bytes())
}

// Hash returns an FNV-1a hash of the contents.
func (s *String) Hash() uint64 {
	h := fnv.New64a()
	h.Write(s.Bytes())
	return h.Sum64()
}

// Destroy releases the foreign allocation and the container slot.
// Must be called exactly once per live string; a second call panics.
func (s *String) Destroy() {
	s.live()
	destroyStringAt(s.env, s.addr)
	s.env.Free(s.addr, stringSize)
	s.destroyed = true
}

func (s *String) live() {
	if s.destroyed {
		panic("foreign: use of destroyed string")
	}
}
