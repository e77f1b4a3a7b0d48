package once

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellSetAndGet(t *testing.T) {
	var c Cell[int]

	assert.False(t, c.IsSet())
	c.MustSet(42, "answer")
	assert.True(t, c.IsSet())
	assert.Equal(t, 42, c.MustGet("answer"))
}

func TestCellDoubleSetPanics(t *testing.T) {
	var c Cell[string]
	c.MustSet("first", "value")

	require.PanicsWithValue(t, "once: value already set", func() {
		c.MustSet("second", "value")
	})
	assert.Equal(t, "first", c.MustGet("value"))
}

func TestCellGetBeforeSetPanics(t *testing.T) {
	var c Cell[func()]

	require.PanicsWithValue(t, "once: callback not set", func() {
		c.MustGet("callback")
	})
}

func TestCellZeroValueIsDistinctFromUnset(t *testing.T) {
	var c Cell[int]
	c.MustSet(0, "zero")

	assert.True(t, c.IsSet())
	assert.Equal(t, 0, c.MustGet("zero"))
}
