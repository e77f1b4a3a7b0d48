// Package plugin glues a plugin body to its host: the versioned
// initialization handshake, the lifecycle hooks, and the identity and
// filesystem context the host serves during initialization.
package plugin

import (
	"context"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/foreign"
	"github.com/plugbridge/plugbridge-go/internal/once"
)

// Hooks carries the plugin's lifecycle callbacks. Each hook is
// registered at most once, before Init; registering a hook twice
// panics. Unregistered hooks are simply absent from the Context the
// host observes.
type Hooks struct {
	start  once.Cell[func()]
	update once.Cell[func(dt float32)]
	end    once.Cell[func()]
}

// OnStart registers the callback invoked once after all plugins loaded.
func (h *Hooks) OnStart(f func()) {
	if f == nil {
		panic("plugin: nil start hook")
	}
	h.start.MustSet(f, "start hook")
}

// OnUpdate registers the per-tick callback. dt is the elapsed time in
// seconds since the previous tick.
func (h *Hooks) OnUpdate(f func(dt float32)) {
	if f == nil {
		panic("plugin: nil update hook")
	}
	h.update.MustSet(f, "update hook")
}

// OnEnd registers the callback invoked once before the plugin unloads.
func (h *Hooks) OnEnd(f func()) {
	if f == nil {
		panic("plugin: nil end hook")
	}
	h.end.MustSet(f, "end hook")
}

// Context describes which lifecycle callbacks the plugin registered.
// The host uses it to skip dispatching absent hooks.
type Context struct {
	HasStart  bool
	HasUpdate bool
	HasEnd    bool
}

// Info is the plugin identity the host serves for a handle.
type Info struct {
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

// Dirs is the host's filesystem layout, fetched once at initialization.
type Dirs struct {
	Base       string
	Extensions string
	Configs    string
	Data       string
	Logs       string
	Cache      string
}

// Plugin is an initialized plugin instance bound to its host.
type Plugin struct {
	env    *ffi.Env
	handle uint64
	hooks  *Hooks
	info   Info
	dirs   Dirs
}

// Init performs the initialization handshake. It binds the host's
// capability table, and on version rejection returns a nil Plugin and
// the required version so the host can report the mismatch; nothing is
// bound or fetched in that case. On success it builds the capability
// context, fetches the filesystem layout and the plugin's own identity,
// and returns zero.
//
// handle is the host's identifier for this plugin instance, passed back
// on every metadata call.
func Init(ctx context.Context, mem ffi.Memory, alloc, dealloc ffi.Func, table []ffi.Func, version int32, handle uint64, hooks *Hooks) (*Plugin, int32) {
	caps := ffi.NewCapabilities()
	if rc := caps.Bind(table, version); rc != 0 {
		return nil, rc
	}
	if hooks == nil {
		hooks = &Hooks{}
	}
	env := ffi.NewEnv(ctx, mem, alloc, dealloc, caps)
	p := &Plugin{env: env, handle: handle, hooks: hooks}
	p.dirs = Dirs{
		Base:       outString(env, &caps.GetBaseDir),
		Extensions: outString(env, &caps.GetExtensionsDir),
		Configs:    outString(env, &caps.GetConfigsDir),
		Data:       outString(env, &caps.GetDataDir),
		Logs:       outString(env, &caps.GetLogsDir),
		Cache:      outString(env, &caps.GetCacheDir),
	}
	p.info = Info{
		ID:           env.Call1(&caps.GetPluginID, handle),
		Name:         outString(env, &caps.GetPluginName, handle),
		Description:  outString(env, &caps.GetPluginDescription, handle),
		Version:      outString(env, &caps.GetPluginVersion, handle),
		Author:       outString(env, &caps.GetPluginAuthor, handle),
		Website:      outString(env, &caps.GetPluginWebsite, handle),
		License:      outString(env, &caps.GetPluginLicense, handle),
		Location:     outString(env, &caps.GetPluginLocation, handle),
		Dependencies: outStrings(env, &caps.GetPluginDependencies, handle),
	}
	return p, 0
}

// outString fetches a host-constructed string through an out-pointer
// and releases the foreign copy.
func outString(env *ffi.Env, s *ffi.Slot, params ...uint64) string {
	out := env.Alloc(12)
	env.Call(s, append(params, uint64(out))...)
	fs := foreign.AdoptString(env, out)
	defer fs.Destroy()
	return fs.String()
}

// outStrings does the same for a host-constructed string vector.
func outStrings(env *ffi.Env, s *ffi.Slot, params ...uint64) []string {
	out := env.Alloc(12)
	env.Call(s, append(params, uint64(out))...)
	v := foreign.AdoptStringVector(env, out)
	defer v.Destroy()
	return v.Values()
}

// Env returns the capability context for constructing containers.
func (p *Plugin) Env() *ffi.Env { return p.env }

// Handle returns the host's identifier for this instance.
func (p *Plugin) Handle() uint64 { return p.handle }

// Info returns the identity fetched at initialization.
func (p *Plugin) Info() Info { return p.info }

// Dirs returns the filesystem layout fetched at initialization.
func (p *Plugin) Dirs() Dirs { return p.dirs }

// Context reports which lifecycle callbacks are registered.
func (p *Plugin) Context() Context {
	return Context{
		HasStart:  p.hooks.start.IsSet(),
		HasUpdate: p.hooks.update.IsSet(),
		HasEnd:    p.hooks.end.IsSet(),
	}
}

// Start dispatches the start hook, if registered.
func (p *Plugin) Start() {
	if p.hooks.start.IsSet() {
		p.hooks.start.MustGet("start hook")()
	}
}

// Update dispatches the update hook, if registered.
func (p *Plugin) Update(dt float32) {
	if p.hooks.update.IsSet() {
		p.hooks.update.MustGet("update hook")(dt)
	}
}

// End dispatches the end hook, if registered.
func (p *Plugin) End() {
	if p.hooks.end.IsSet() {
		p.hooks.end.MustGet("end hook")()
	}
}

// MethodPtr resolves an exported method name through the host, returning
// the method's address or zero if the name is unknown.
func (p *Plugin) MethodPtr(name string) uint64 {
	n := foreign.NewStringFrom(p.env, name)
	defer n.Destroy()
	return p.env.Call1(&p.env.Caps().GetMethodPtr, uint64(n.Addr()))
}

// IsExtensionLoaded asks the host whether an extension is present.
// constraint is a version range in the host's constraint syntax; empty
// means any version.
func (p *Plugin) IsExtensionLoaded(name, constraint string) bool {
	n := foreign.NewStringFrom(p.env, name)
	defer n.Destroy()
	var cAddr uint32
	if constraint != "" {
		c := foreign.NewStringFrom(p.env, constraint)
		defer c.Destroy()
		cAddr = c.Addr()
	}
	return p.env.Call1(&p.env.Caps().IsExtensionLoaded, uint64(n.Addr()), uint64(cAddr)) != 0
}
