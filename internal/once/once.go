// Package once provides a write-once cell used for symbol slots and
// lifecycle callback registration. Setting a cell twice, or reading it
// before it has been set, is a programming error and panics: the caller
// cannot continue safely after either, so no error value is returned.
package once

// Cell holds a value that may be written at most once.
// The zero value is an unset cell. Cell is not safe for concurrent
// writes; the intended pattern is set-once during single-threaded
// initialization, read-only afterwards.
type Cell[T any] struct {
	value T
	set   bool
}

// MustSet stores v into the cell. It panics if the cell was already set.
// The what argument names the cell in the panic message.
func (c *Cell[T]) MustSet(v T, what string) {
	if c.set {
		panic("once: " + what + " already set")
	}
	c.value = v
	c.set = true
}

// MustGet returns the stored value. It panics if the cell is unset.
func (c *Cell[T]) MustGet(what string) T {
	if !c.set {
		panic("once: " + what + " not set")
	}
	return c.value
}

// IsSet reports whether the cell has been written.
func (c *Cell[T]) IsSet() bool {
	return c.set
}
