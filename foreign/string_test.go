package foreign_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/foreign"
	"github.com/plugbridge/plugbridge-go/hosttest"
)

func newTestEnv(t *testing.T) (*hosttest.Core, *ffi.Env) {
	t.Helper()
	core := hosttest.New()
	return core, core.Env(context.Background())
}

func TestStringRoundTrip(t *testing.T) {
	core, env := newTestEnv(t)

	s := foreign.NewStringFrom(env, "hello")
	assert.Equal(t, 5, s.Len())
	assert.False(t, s.IsEmpty())
	assert.Equal(t, "hello", s.String())
	assert.Equal(t, []byte("hello"), s.Bytes())

	s.Set("hi")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "hi", s.String())

	s.Destroy()
	assert.Equal(t, 1, core.Calls["destroy_string"])
	assert.Zero(t, core.LiveAllocs())
}

func TestStringEmpty(t *testing.T) {
	core, env := newTestEnv(t)

	s := foreign.NewString(env)
	assert.Zero(t, s.Len())
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Bytes())

	s.Destroy()
	assert.Zero(t, core.LiveAllocs())
}

func TestStringSetGrowsAndShrinks(t *testing.T) {
	core, env := newTestEnv(t)

	s := foreign.NewStringFrom(env, "a")
	s.Set("a longer replacement value")
	assert.Equal(t, "a longer replacement value", s.String())
	s.Set("")
	assert.True(t, s.IsEmpty())
	s.Set("back")
	assert.Equal(t, "back", s.String())

	s.Destroy()
	assert.Zero(t, core.LiveAllocs())
}

func TestStringCloneIsIndependent(t *testing.T) {
	_, env := newTestEnv(t)

	s := foreign.NewStringFrom(env, "original")
	c := s.Clone()

	s.Set("changed")
	assert.Equal(t, "original", c.String())
	assert.Equal(t, "changed", s.String())

	s.Destroy()
	assert.Equal(t, "original", c.String())
	c.Destroy()
}

func TestStringCompare(t *testing.T) {
	_, env := newTestEnv(t)

	a := foreign.NewStringFrom(env, "apple")
	b := foreign.NewStringFrom(env, "banana")
	a2 := foreign.NewStringFrom(env, "apple")
	defer a.Destroy()
	defer b.Destroy()
	defer a2.Destroy()

	assert.True(t, a.Equal(a2))
	assert.False(t, a.Equal(b))
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a2))
	assert.Equal(t, a.Hash(), a2.Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestStringDoubleDestroyPanics(t *testing.T) {
	_, env := newTestEnv(t)

	s := foreign.NewStringFrom(env, "x")
	s.Destroy()

	assert.PanicsWithValue(t, "foreign: use of destroyed string", func() { s.Destroy() })
	assert.PanicsWithValue(t, "foreign: use of destroyed string", func() { s.Len() })
}

func TestStringUnboundSlotPanics(t *testing.T) {
	core := hosttest.New()
	caps := ffi.NewCapabilities()
	// A rejected handshake leaves every slot unbound.
	require.Equal(t, ffi.RequiredVersion, caps.Bind(core.Table(), 0))
	env := ffi.NewEnv(context.Background(), core, core.AllocFunc(), core.DeallocFunc(), caps)

	assert.Panics(t, func() { foreign.NewStringFrom(env, "x") })
}
