// Package hosttest provides an in-process implementation of the host
// side of the plugin ABI, for use in tests. A Core owns a growable
// linear memory, a tracking allocator, and Go implementations of every
// capability table entry, so container and lifecycle code can be
// exercised end to end without a wasm runtime.
//
// The allocator never reuses addresses and panics on a release of an
// untracked or size-mismatched block, which turns double-destroy and
// leaked-ownership bugs into immediate test failures. Every boundary
// call is counted by symbol name in Calls, so tests can assert
// exactly-once destruction and construct/assign pairings.
package hosttest

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/foreign"
)

// PluginInfo is the metadata the core serves for one plugin handle.
type PluginInfo struct {
	ID           uint64
	Name         string
	Description  string
	Version      string
	Author       string
	Website      string
	License      string
	Location     string
	Dependencies []string
}

// Core is the fake host. Configure the exported fields before building
// an Env; they are read on every call, so tests may also mutate them
// between calls.
type Core struct {
	BaseDir       string
	ExtensionsDir string
	ConfigsDir    string
	DataDir       string
	LogsDir       string
	CacheDir      string

	// Plugins maps the handle passed to metadata getters.
	Plugins map[uint64]PluginInfo
	// Methods maps exported method names to their addresses.
	Methods map[string]uint64
	// Loaded lists extensions is_extension_loaded reports as present.
	Loaded map[string]bool

	// Calls counts boundary invocations by symbol name, including
	// "allocate" and "deallocate".
	Calls map[string]int

	mem    []byte
	next   uint32
	allocs map[uint32]uint32
}

// New returns a core with an empty heap. Address 0 is never handed out,
// so it stays usable as a null sentinel.
func New() *Core {
	return &Core{
		Plugins: map[uint64]PluginInfo{},
		Methods: map[string]uint64{},
		Loaded:  map[string]bool{},
		Calls:   map[string]int{},
		mem:     make([]byte, 16),
		next:    16,
		allocs:  map[uint32]uint32{},
	}
}

// Read implements ffi.Memory.
func (c *Core) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(c.mem)) {
		return nil, false
	}
	return c.mem[offset:end], true
}

// Write implements ffi.Memory.
func (c *Core) Write(offset uint32, v []byte) bool {
	end := uint64(offset) + uint64(len(v))
	if end > uint64(len(c.mem)) {
		return false
	}
	copy(c.mem[offset:], v)
	return true
}

// LiveAllocs returns the number of outstanding heap blocks. Zero after
// every container is destroyed means no ownership was leaked.
func (c *Core) LiveAllocs() int { return len(c.allocs) }

// Env binds the core's capability table at the required version and
// returns a ready-to-use capability context.
func (c *Core) Env(ctx context.Context) *ffi.Env {
	caps := ffi.NewCapabilities()
	if rc := caps.Bind(c.Table(), ffi.RequiredVersion); rc != 0 {
		panic(fmt.Sprintf("hosttest: bind rejected with %d", rc))
	}
	return ffi.NewEnv(ctx, c, c.AllocFunc(), c.DeallocFunc(), caps)
}

// AllocFunc returns the allocate entry point.
func (c *Core) AllocFunc() ffi.Func {
	return &coreFunc{core: c, name: "allocate", fn: func(p []uint64) []uint64 {
		return []uint64{uint64(c.allocate(uint32(p[0])))}
	}}
}

// DeallocFunc returns the deallocate entry point.
func (c *Core) DeallocFunc() ffi.Func {
	return &coreFunc{core: c, name: "deallocate", fn: func(p []uint64) []uint64 {
		c.release(uint32(p[0]), uint32(p[1]))
		return nil
	}}
}

// Table returns the full capability table in binding order.
func (c *Core) Table() []ffi.Func {
	table := make([]ffi.Func, 0, ffi.TableLen)
	for _, name := range ffi.TableSymbols() {
		table = append(table, &coreFunc{core: c, name: name, fn: c.entry(name)})
	}
	return table
}

type coreFunc struct {
	core *Core
	name string
	fn   func(params []uint64) []uint64
}

func (f *coreFunc) Call(_ context.Context, params ...uint64) ([]uint64, error) {
	f.core.Calls[f.name]++
	return f.fn(params), nil
}

func (c *Core) entry(name string) func([]uint64) []uint64 {
	for prefix, op := range map[string]func(ffi.ElemKind, []uint64) []uint64{
		"construct_vector_": c.vecConstruct,
		"destroy_vector_":   c.vecDestroy,
		"get_vector_size_":  c.vecSize,
		"get_vector_data_":  c.vecData,
		"assign_vector_":    c.vecAssign,
	} {
		if kindName, ok := strings.CutPrefix(name, prefix); ok {
			kind := elemKindByName(kindName)
			return func(p []uint64) []uint64 { return op(kind, p) }
		}
	}

	dir := func(s *string) func([]uint64) []uint64 {
		return func(p []uint64) []uint64 {
			c.makeString(uint32(p[0]), []byte(*s))
			return nil
		}
	}
	meta := func(field func(PluginInfo) string) func([]uint64) []uint64 {
		return func(p []uint64) []uint64 {
			c.makeString(uint32(p[1]), []byte(field(c.plugin(p[0]))))
			return nil
		}
	}

	switch name {
	case "get_method_ptr":
		return func(p []uint64) []uint64 {
			return []uint64{c.Methods[c.stringAt(uint32(p[0]))]}
		}
	case "get_base_dir":
		return dir(&c.BaseDir)
	case "get_extensions_dir":
		return dir(&c.ExtensionsDir)
	case "get_configs_dir":
		return dir(&c.ConfigsDir)
	case "get_data_dir":
		return dir(&c.DataDir)
	case "get_logs_dir":
		return dir(&c.LogsDir)
	case "get_cache_dir":
		return dir(&c.CacheDir)
	case "is_extension_loaded":
		return func(p []uint64) []uint64 {
			if c.Loaded[c.stringAt(uint32(p[0]))] {
				return []uint64{1}
			}
			return []uint64{0}
		}
	case "get_plugin_id":
		return func(p []uint64) []uint64 {
			return []uint64{c.plugin(p[0]).ID}
		}
	case "get_plugin_name":
		return meta(func(pi PluginInfo) string { return pi.Name })
	case "get_plugin_description":
		return meta(func(pi PluginInfo) string { return pi.Description })
	case "get_plugin_version":
		return meta(func(pi PluginInfo) string { return pi.Version })
	case "get_plugin_author":
		return meta(func(pi PluginInfo) string { return pi.Author })
	case "get_plugin_website":
		return meta(func(pi PluginInfo) string { return pi.Website })
	case "get_plugin_license":
		return meta(func(pi PluginInfo) string { return pi.License })
	case "get_plugin_location":
		return meta(func(pi PluginInfo) string { return pi.Location })
	case "get_plugin_dependencies":
		return func(p []uint64) []uint64 {
			c.makeStringVector(uint32(p[1]), c.plugin(p[0]).Dependencies)
			return nil
		}
	case "construct_string":
		return func(p []uint64) []uint64 {
			c.makeString(uint32(p[0]), c.bytes(uint32(p[1]), uint32(p[2])))
			return nil
		}
	case "destroy_string":
		return func(p []uint64) []uint64 {
			c.dropString(uint32(p[0]))
			return nil
		}
	case "get_string_data":
		return func(p []uint64) []uint64 {
			return []uint64{uint64(c.u32(uint32(p[0])))}
		}
	case "get_string_length":
		return func(p []uint64) []uint64 {
			return []uint64{uint64(c.u32(uint32(p[0]) + 4))}
		}
	case "assign_string":
		return func(p []uint64) []uint64 {
			// Copy before dropping: the source may alias this string's
			// own storage.
			b := c.bytes(uint32(p[1]), uint32(p[2]))
			c.dropString(uint32(p[0]))
			c.makeString(uint32(p[0]), b)
			return nil
		}
	case "destroy_variant":
		return func(p []uint64) []uint64 {
			c.dropVariant(uint32(p[0]))
			return nil
		}
	default:
		panic("hosttest: unknown symbol " + name)
	}
}

func elemKindByName(name string) ffi.ElemKind {
	for k := 0; k < ffi.NumElemKinds; k++ {
		if ffi.ElemKind(k).String() == name {
			return ffi.ElemKind(k)
		}
	}
	panic("hosttest: unknown element kind " + name)
}

// ---- heap ----

func (c *Core) allocate(size uint32) uint32 {
	if size == 0 {
		panic("hosttest: zero-size allocation")
	}
	addr := (c.next + 7) &^ 7
	end := uint64(addr) + uint64(size)
	for uint64(len(c.mem)) < end {
		c.mem = append(c.mem, make([]byte, len(c.mem))...)
	}
	c.next = uint32(end)
	c.allocs[addr] = size
	return addr
}

func (c *Core) release(addr, size uint32) {
	tracked, ok := c.allocs[addr]
	if !ok {
		panic(fmt.Sprintf("hosttest: release of untracked address 0x%x", addr))
	}
	if tracked != size {
		panic(fmt.Sprintf("hosttest: release of 0x%x with size %d, allocated %d", addr, size, tracked))
	}
	delete(c.allocs, addr)
}

func (c *Core) freeBlock(addr uint32) {
	size, ok := c.allocs[addr]
	if !ok {
		panic(fmt.Sprintf("hosttest: free of untracked address 0x%x", addr))
	}
	c.release(addr, size)
}

func (c *Core) bytes(addr, n uint32) []byte {
	if n == 0 {
		return nil
	}
	b, ok := c.Read(addr, n)
	if !ok {
		panic(fmt.Sprintf("hosttest: read of %d bytes at 0x%x out of bounds", n, addr))
	}
	return b
}

func (c *Core) u32(addr uint32) uint32 {
	return binary.LittleEndian.Uint32(c.bytes(addr, 4))
}

func (c *Core) putU32(addr, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if !c.Write(addr, b[:]) {
		panic(fmt.Sprintf("hosttest: write at 0x%x out of bounds", addr))
	}
}

func (c *Core) plugin(handle uint64) PluginInfo {
	pi, ok := c.Plugins[handle]
	if !ok {
		panic(fmt.Sprintf("hosttest: unknown plugin handle %d", handle))
	}
	return pi
}

// ---- string container ----

// makeString writes a fresh string struct at addr owning a copy of b.
func (c *Core) makeString(addr uint32, b []byte) {
	var data uint32
	if len(b) > 0 {
		data = c.allocate(uint32(len(b)))
		copy(c.mem[data:], b)
	}
	c.putU32(addr, data)
	c.putU32(addr+4, uint32(len(b)))
	c.putU32(addr+8, uint32(len(b)))
}

func (c *Core) dropString(addr uint32) {
	if data := c.u32(addr); data != 0 {
		c.freeBlock(data)
	}
}

func (c *Core) stringAt(addr uint32) string {
	return string(c.bytes(c.u32(addr), c.u32(addr+4)))
}

// ---- vector container ----

// makeVector writes a fresh vector struct at addr holding n deep-copied
// elements read from src.
func (c *Core) makeVector(addr uint32, kind ffi.ElemKind, src, n uint32) {
	size := kind.Size()
	var begin uint32
	if n > 0 {
		begin = c.allocate(n * size)
		for i := uint32(0); i < n; i++ {
			c.copyElem(kind, begin+i*size, src+i*size)
		}
	}
	c.putU32(addr, begin)
	c.putU32(addr+4, n)
	c.putU32(addr+8, n)
}

func (c *Core) dropVector(addr uint32, kind ffi.ElemKind) {
	begin, n := c.u32(addr), c.u32(addr+4)
	size := kind.Size()
	for i := uint32(0); i < n; i++ {
		c.destroyElem(kind, begin+i*size)
	}
	if begin != 0 {
		c.freeBlock(begin)
	}
}

func (c *Core) copyElem(kind ffi.ElemKind, dst, src uint32) {
	switch kind {
	case ffi.ElemString:
		c.makeString(dst, c.bytes(c.u32(src), c.u32(src+4)))
	case ffi.ElemVariant:
		c.copyVariant(dst, src)
	default:
		copy(c.mem[dst:], c.bytes(src, kind.Size()))
	}
}

func (c *Core) destroyElem(kind ffi.ElemKind, addr uint32) {
	switch kind {
	case ffi.ElemString:
		c.dropString(addr)
	case ffi.ElemVariant:
		c.dropVariant(addr)
	}
}

func (c *Core) vecConstruct(kind ffi.ElemKind, p []uint64) []uint64 {
	c.makeVector(uint32(p[0]), kind, uint32(p[1]), uint32(p[2]))
	return nil
}

func (c *Core) vecDestroy(kind ffi.ElemKind, p []uint64) []uint64 {
	c.dropVector(uint32(p[0]), kind)
	return nil
}

func (c *Core) vecSize(_ ffi.ElemKind, p []uint64) []uint64 {
	return []uint64{uint64(c.u32(uint32(p[0]) + 4))}
}

func (c *Core) vecData(_ ffi.ElemKind, p []uint64) []uint64 {
	return []uint64{uint64(c.u32(uint32(p[0])))}
}

func (c *Core) vecAssign(kind ffi.ElemKind, p []uint64) []uint64 {
	addr, src, n := uint32(p[0]), uint32(p[1]), uint32(p[2])
	size := kind.Size()
	var begin uint32
	if n > 0 {
		// Deep-copy the new contents before releasing the old: the
		// source elements may reference storage the old vector owns.
		begin = c.allocate(n * size)
		for i := uint32(0); i < n; i++ {
			c.copyElem(kind, begin+i*size, src+i*size)
		}
	}
	c.dropVector(addr, kind)
	c.putU32(addr, begin)
	c.putU32(addr+4, n)
	c.putU32(addr+8, n)
	return nil
}

// makeStringVector writes a fresh string vector struct at addr from Go
// strings, bypassing element-source memory.
func (c *Core) makeStringVector(addr uint32, values []string) {
	n := uint32(len(values))
	var begin uint32
	if n > 0 {
		begin = c.allocate(n * 12)
		for i, v := range values {
			c.makeString(begin+uint32(i)*12, []byte(v))
		}
	}
	c.putU32(addr, begin)
	c.putU32(addr+4, n)
	c.putU32(addr+8, n)
}

// ---- variant ----

const variantDisc = 24

func (c *Core) copyVariant(dst, src uint32) {
	copy(c.mem[dst:dst+32], c.bytes(src, 32))
	k := foreign.Kind(c.mem[src+variantDisc])
	if k == foreign.KindString {
		c.makeString(dst, c.bytes(c.u32(src), c.u32(src+4)))
		return
	}
	if e, ok := k.Elem(); ok {
		c.makeVector(dst, e, c.u32(src), c.u32(src+4))
	}
}

func (c *Core) dropVariant(addr uint32) {
	k := foreign.Kind(c.mem[addr+variantDisc])
	if k == foreign.KindString {
		c.dropString(addr)
		return
	}
	if e, ok := k.Elem(); ok {
		c.dropVector(addr, e)
	}
}
