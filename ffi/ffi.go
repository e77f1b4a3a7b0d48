// Package ffi holds the raw call layer between a plugin and its host:
// the two narrow interfaces the host must satisfy (Memory, Func), the
// write-once symbol slots, and the versioned binder that turns the
// host's ordered capability table into typed, callable entry points.
//
// Every failure past the initial version gate is a contract violation,
// not a recoverable condition. A mislaid slot, a short table, or a
// transport error on a foreign call all indicate a corrupted ABI
// agreement, and continuing would risk memory corruption on the foreign
// heap, so this package panics instead of returning errors.
package ffi

import (
	"context"
	"fmt"
)

// Func is a single callable foreign entry point. wazero's api.Function
// satisfies it directly; tests use in-process implementations.
//
// The foreign contract forbids unwinding across the boundary: a non-nil
// error from Call means the transport itself failed, which callers
// treat as fatal.
type Func interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Memory is byte-addressable foreign memory. Offsets are 32-bit, as in
// the wasm32 address space the container layouts assume. wazero's
// api.Memory satisfies it directly.
type Memory interface {
	// Read returns a view of byteCount bytes at offset, or false if the
	// range is out of bounds.
	Read(offset, byteCount uint32) ([]byte, bool)
	// Write copies v into memory at offset, or returns false if the
	// range is out of bounds.
	Write(offset uint32, v []byte) bool
}

// Env is the capability context built once at plugin initialization and
// threaded through every container operation. It bundles foreign
// memory, the scratch allocator pair, and the bound symbol table.
//
// Env holds the context it was created with: foreign calls are
// synchronous and non-cancellable by contract, so there is no
// per-operation context.
type Env struct {
	ctx     context.Context
	mem     Memory
	alloc   Func
	dealloc Func
	caps    *Capabilities
}

// NewEnv builds a capability context from the host-supplied memory,
// allocator pair, and a bound symbol table.
func NewEnv(ctx context.Context, mem Memory, alloc, dealloc Func, caps *Capabilities) *Env {
	if mem == nil {
		panic("ffi: nil memory")
	}
	if alloc == nil || dealloc == nil {
		panic("ffi: nil allocator")
	}
	if caps == nil {
		panic("ffi: nil capabilities")
	}
	return &Env{ctx: ctx, mem: mem, alloc: alloc, dealloc: dealloc, caps: caps}
}

// Caps returns the bound symbol table.
func (e *Env) Caps() *Capabilities { return e.caps }

// Call invokes a bound slot and discards any results.
func (e *Env) Call(s *Slot, params ...uint64) {
	e.call(s, params...)
}

// Call1 invokes a bound slot that returns exactly one value.
func (e *Env) Call1(s *Slot, params ...uint64) uint64 {
	results := e.call(s, params...)
	if len(results) != 1 {
		panic(fmt.Sprintf("ffi: %s returned %d values, want 1", s.name, len(results)))
	}
	return results[0]
}

func (e *Env) call(s *Slot, params ...uint64) []uint64 {
	results, err := s.Func().Call(e.ctx, params...)
	if err != nil {
		panic(fmt.Sprintf("ffi: foreign call %s failed: %v", s.name, err))
	}
	return results
}

// Alloc reserves size bytes on the foreign heap and returns the offset.
func (e *Env) Alloc(size uint32) uint32 {
	results, err := e.alloc.Call(e.ctx, uint64(size))
	if err != nil {
		panic(fmt.Sprintf("ffi: foreign allocate failed: %v", err))
	}
	if len(results) != 1 {
		panic("ffi: foreign allocate returned no value")
	}
	return uint32(results[0])
}

// Free releases a foreign heap block previously returned by Alloc.
func (e *Env) Free(ptr, size uint32) {
	if _, err := e.dealloc.Call(e.ctx, uint64(ptr), uint64(size)); err != nil {
		panic(fmt.Sprintf("ffi: foreign deallocate failed: %v", err))
	}
}

// ReadBytes copies byteCount bytes out of foreign memory at ptr.
// An out-of-bounds range is a layout contract breach and panics.
func (e *Env) ReadBytes(ptr, byteCount uint32) []byte {
	if byteCount == 0 {
		return nil
	}
	view, ok := e.mem.Read(ptr, byteCount)
	if !ok {
		panic(fmt.Sprintf("ffi: read of %d bytes at 0x%x out of bounds", byteCount, ptr))
	}
	out := make([]byte, byteCount)
	copy(out, view)
	return out
}

// WriteBytes copies data into foreign memory at ptr.
func (e *Env) WriteBytes(ptr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	if !e.mem.Write(ptr, data) {
		panic(fmt.Sprintf("ffi: write of %d bytes at 0x%x out of bounds", len(data), ptr))
	}
}

// WithScratch allocates a scratch block on the foreign heap, fills it
// with data, runs f with the block's offset, and releases the block.
// Used to pass byte payloads into foreign construct/assign calls.
func (e *Env) WithScratch(data []byte, f func(ptr uint32)) {
	size := uint32(len(data))
	if size == 0 {
		f(0)
		return
	}
	ptr := e.Alloc(size)
	e.WriteBytes(ptr, data)
	f(ptr)
	e.Free(ptr, size)
}
