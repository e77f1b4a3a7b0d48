package plugin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/hosttest"
	"github.com/plugbridge/plugbridge-go/plugin"
)

func configuredCore() *hosttest.Core {
	core := hosttest.New()
	core.BaseDir = "/srv/plug"
	core.ExtensionsDir = "/srv/plug/extensions"
	core.ConfigsDir = "/srv/plug/configs"
	core.DataDir = "/srv/plug/data"
	core.LogsDir = "/srv/plug/logs"
	core.CacheDir = "/srv/plug/cache"
	core.Plugins[7] = hosttest.PluginInfo{
		ID:           42,
		Name:         "sample",
		Description:  "a sample plugin",
		Version:      "1.2.3",
		Author:       "someone",
		Website:      "https://example.com",
		License:      "MIT",
		Location:     "/srv/plug/extensions/sample",
		Dependencies: []string{"core-ext", "render-ext"},
	}
	core.Methods["sample.Frobnicate"] = 0xC0DE
	core.Loaded["render-ext"] = true
	return core
}

func initPlugin(t *testing.T, core *hosttest.Core, hooks *plugin.Hooks) *plugin.Plugin {
	t.Helper()
	p, rc := plugin.Init(context.Background(), core, core.AllocFunc(), core.DeallocFunc(),
		core.Table(), ffi.RequiredVersion, 7, hooks)
	require.Zero(t, rc)
	require.NotNil(t, p)
	return p
}

func TestInitFetchesIdentityAndDirs(t *testing.T) {
	core := configuredCore()
	p := initPlugin(t, core, nil)

	info := p.Info()
	assert.Equal(t, uint64(42), info.ID)
	assert.Equal(t, "sample", info.Name)
	assert.Equal(t, "a sample plugin", info.Description)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "someone", info.Author)
	assert.Equal(t, "https://example.com", info.Website)
	assert.Equal(t, "MIT", info.License)
	assert.Equal(t, "/srv/plug/extensions/sample", info.Location)
	assert.Equal(t, []string{"core-ext", "render-ext"}, info.Dependencies)

	dirs := p.Dirs()
	assert.Equal(t, "/srv/plug", dirs.Base)
	assert.Equal(t, "/srv/plug/extensions", dirs.Extensions)
	assert.Equal(t, "/srv/plug/configs", dirs.Configs)
	assert.Equal(t, "/srv/plug/data", dirs.Data)
	assert.Equal(t, "/srv/plug/logs", dirs.Logs)
	assert.Equal(t, "/srv/plug/cache", dirs.Cache)

	assert.Equal(t, uint64(7), p.Handle())
	// Every transfer string was released.
	assert.Zero(t, core.LiveAllocs())
}

func TestInitVersionRejection(t *testing.T) {
	core := configuredCore()

	p, rc := plugin.Init(context.Background(), core, core.AllocFunc(), core.DeallocFunc(),
		core.Table(), 0, 7, nil)

	assert.Nil(t, p)
	assert.Equal(t, ffi.RequiredVersion, rc)
	// Rejection happens before any fetch.
	assert.Zero(t, core.Calls["get_base_dir"])
	assert.Zero(t, core.Calls["get_plugin_name"])
}

func TestHooksDispatch(t *testing.T) {
	core := configuredCore()

	var started, ended bool
	var ticks []float32
	hooks := &plugin.Hooks{}
	hooks.OnStart(func() { started = true })
	hooks.OnUpdate(func(dt float32) { ticks = append(ticks, dt) })
	hooks.OnEnd(func() { ended = true })

	p := initPlugin(t, core, hooks)
	assert.Equal(t, plugin.Context{HasStart: true, HasUpdate: true, HasEnd: true}, p.Context())

	p.Start()
	p.Update(0.016)
	p.Update(0.033)
	p.End()

	assert.True(t, started)
	assert.True(t, ended)
	assert.Equal(t, []float32{0.016, 0.033}, ticks)
}

func TestNoHooksRegistered(t *testing.T) {
	core := configuredCore()
	p := initPlugin(t, core, nil)

	assert.Equal(t, plugin.Context{}, p.Context())
	// Absent hooks are skipped, not errors.
	p.Start()
	p.Update(1)
	p.End()
}

func TestHookDoubleRegistrationPanics(t *testing.T) {
	hooks := &plugin.Hooks{}
	hooks.OnStart(func() {})

	assert.PanicsWithValue(t, "once: start hook already set", func() {
		hooks.OnStart(func() {})
	})
	assert.PanicsWithValue(t, "plugin: nil update hook", func() {
		hooks.OnUpdate(nil)
	})
}

func TestMethodPtr(t *testing.T) {
	core := configuredCore()
	p := initPlugin(t, core, nil)

	assert.Equal(t, uint64(0xC0DE), p.MethodPtr("sample.Frobnicate"))
	assert.Zero(t, p.MethodPtr("missing"))
	// Lookup strings are temporaries.
	assert.Zero(t, core.LiveAllocs())
}

func TestIsExtensionLoaded(t *testing.T) {
	core := configuredCore()
	p := initPlugin(t, core, nil)

	assert.True(t, p.IsExtensionLoaded("render-ext", ""))
	assert.True(t, p.IsExtensionLoaded("render-ext", ">=1.0"))
	assert.False(t, p.IsExtensionLoaded("absent-ext", ""))
	assert.Zero(t, core.LiveAllocs())
}
