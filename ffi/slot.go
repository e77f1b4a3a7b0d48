package ffi

import (
	"github.com/plugbridge/plugbridge-go/internal/once"
)

// Slot is a named, write-once holder for one foreign entry point.
// Created unset; written exactly once during Bind; read many times
// afterwards. Both a second write and a read before the first write are
// fatal: neither can be expressed as a recoverable error because the
// signature asserted for the entry point is trusted, not checked.
type Slot struct {
	name string
	fn   once.Cell[Func]
}

// Name returns the ABI symbol name the slot binds.
func (s *Slot) Name() string { return s.name }

// Bound reports whether the slot has been resolved.
func (s *Slot) Bound() bool { return s.fn.IsSet() }

// Func returns the resolved entry point, panicking if the slot is
// unbound (use before initialization, or after a rejected version
// handshake).
func (s *Slot) Func() Func {
	return s.fn.MustGet("symbol " + s.name)
}

func (s *Slot) bind(fn Func) {
	if fn == nil {
		panic("ffi: nil address for symbol " + s.name)
	}
	s.fn.MustSet(fn, "symbol "+s.name)
}
