package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/plugbridge/plugbridge-go/ffi"
	"github.com/plugbridge/plugbridge-go/manifest"
	"github.com/plugbridge/plugbridge-go/plugin"
)

// Registration is one plugin the host knows about: its manifest plus
// where it was loaded from.
type Registration struct {
	ID       uint64
	Manifest *manifest.Manifest
	Location string
}

// Runtime owns the wazero instance the foreign core runs in and serves
// the host side of the capability table. Container entry points come
// straight from the core module's exports; directory, metadata, and
// lookup entry points are implemented here over the host configuration
// and the plugin registry.
type Runtime struct {
	log  *zap.Logger
	cfg  Config
	wz   wazero.Runtime
	core coreModule

	mu      sync.Mutex
	nextID  uint64
	plugins map[uint64]Registration
	methods map[string]uint64
	loaded  map[string]string
}

// coreModule is what the runtime needs from the instantiated core.
// wazero's api.Module is adapted to it; tests substitute an in-process
// core.
type coreModule interface {
	Name() string
	Memory() ffi.Memory
	ExportedFunction(name string) ffi.Func
}

// wazeroCore adapts api.Module to coreModule, converting wazero's
// typed nils to plain nil interfaces.
type wazeroCore struct {
	mod api.Module
}

func (w wazeroCore) Name() string { return w.mod.Name() }

func (w wazeroCore) Memory() ffi.Memory {
	if m := w.mod.Memory(); m != nil {
		return m
	}
	return nil
}

func (w wazeroCore) ExportedFunction(name string) ffi.Func {
	if f := w.mod.ExportedFunction(name); f != nil {
		return f
	}
	return nil
}

// New instantiates the foreign core from its wasm binary and verifies
// that every container entry point and the allocator pair are exported.
func New(ctx context.Context, coreWasm []byte, opts ...Option) (*Runtime, error) {
	r := newRuntime(opts)

	rc := wazero.NewRuntimeConfig()
	if r.cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(r.cfg.MemoryLimitPages)
	}
	r.wz = wazero.NewRuntimeWithConfig(ctx, rc)
	wasi_snapshot_preview1.MustInstantiate(ctx, r.wz)

	mod, err := r.wz.Instantiate(ctx, coreWasm)
	if err != nil {
		r.wz.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate core module: %w", err)
	}
	r.core = wazeroCore{mod: mod}

	if err := r.verifyExports(); err != nil {
		r.wz.Close(ctx)
		return nil, err
	}

	r.log.Info("core module loaded", zap.String("module", r.core.Name()))
	return r, nil
}

func newRuntime(opts []Option) *Runtime {
	r := &Runtime{
		log:     zap.NewNop(),
		cfg:     DefaultConfig(),
		nextID:  1,
		plugins: map[uint64]Registration{},
		methods: map[string]uint64{},
		loaded:  map[string]string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newCoreRuntime builds a runtime over an already-instantiated core.
// Used by tests to drive the table over an in-process implementation.
func newCoreRuntime(core coreModule, opts ...Option) (*Runtime, error) {
	r := newRuntime(opts)
	r.core = core
	if err := r.verifyExports(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the wazero runtime and everything instantiated in it.
func (r *Runtime) Close(ctx context.Context) error {
	if r.wz == nil {
		return nil
	}
	return r.wz.Close(ctx)
}

func (r *Runtime) verifyExports() error {
	if r.core.Memory() == nil {
		return fmt.Errorf("core module exports no memory")
	}
	required := []string{"allocate", "deallocate"}
	for _, name := range ffi.TableSymbols() {
		if !hostServed[name] {
			required = append(required, name)
		}
	}
	for _, name := range required {
		if r.core.ExportedFunction(name) == nil {
			return fmt.Errorf("core module missing export %q", name)
		}
	}
	return nil
}

// hostServed lists the table symbols the host implements itself rather
// than forwarding to the core module.
var hostServed = map[string]bool{
	"get_method_ptr":          true,
	"get_base_dir":            true,
	"get_extensions_dir":      true,
	"get_configs_dir":         true,
	"get_data_dir":            true,
	"get_logs_dir":            true,
	"get_cache_dir":           true,
	"is_extension_loaded":     true,
	"get_plugin_id":           true,
	"get_plugin_name":         true,
	"get_plugin_description":  true,
	"get_plugin_version":      true,
	"get_plugin_author":       true,
	"get_plugin_website":      true,
	"get_plugin_license":      true,
	"get_plugin_location":     true,
	"get_plugin_dependencies": true,
}

// Table assembles the capability table in binding order.
func (r *Runtime) Table() []ffi.Func {
	table := make([]ffi.Func, 0, ffi.TableLen)
	for _, name := range ffi.TableSymbols() {
		if hostServed[name] {
			table = append(table, r.serviceEntry(name))
		} else {
			table = append(table, r.core.ExportedFunction(name))
		}
	}
	return table
}

// Memory returns the core module's linear memory.
func (r *Runtime) Memory() ffi.Memory { return r.core.Memory() }

// AllocFunc returns the core's allocate export.
func (r *Runtime) AllocFunc() ffi.Func { return r.core.ExportedFunction("allocate") }

// DeallocFunc returns the core's deallocate export.
func (r *Runtime) DeallocFunc() ffi.Func { return r.core.ExportedFunction("deallocate") }

// RegisterPlugin validates a manifest and records it under handle. The
// metadata entry points serve the recorded fields.
func (r *Runtime) RegisterPlugin(handle uint64, m *manifest.Manifest, location string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[handle]; exists {
		return fmt.Errorf("plugin handle %d already registered", handle)
	}
	reg := Registration{ID: r.nextID, Manifest: m, Location: location}
	r.nextID++
	r.plugins[handle] = reg
	r.log.Info("plugin registered",
		zap.Uint64("handle", handle),
		zap.Uint64("id", reg.ID),
		zap.String("name", m.Name),
		zap.String("version", m.Version))
	return nil
}

// RegisterMethod records the address of an exported method so
// get_method_ptr can resolve it.
func (r *Runtime) RegisterMethod(name string, addr uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = addr
}

// MarkLoaded records an extension as present at the given version.
func (r *Runtime) MarkLoaded(name, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[name] = version
}

// InitPlugin runs the initialization handshake for a registered plugin
// at the host's interface version.
func (r *Runtime) InitPlugin(ctx context.Context, handle uint64, hooks *plugin.Hooks) (*plugin.Plugin, error) {
	p, rc := plugin.Init(ctx, r.Memory(), r.AllocFunc(), r.DeallocFunc(), r.Table(), ffi.RequiredVersion, handle, hooks)
	if rc != 0 {
		return nil, fmt.Errorf("plugin requires interface version %d, host provides %d", rc, ffi.RequiredVersion)
	}
	pctx := p.Context()
	r.log.Info("plugin initialized",
		zap.Uint64("handle", handle),
		zap.String("name", p.Info().Name),
		zap.Bool("has_start", pctx.HasStart),
		zap.Bool("has_update", pctx.HasUpdate),
		zap.Bool("has_end", pctx.HasEnd))
	return p, nil
}

// hostFunc is a table entry implemented in Go.
type hostFunc struct {
	name string
	fn   func(ctx context.Context, params []uint64) ([]uint64, error)
}

func (h *hostFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	results, err := h.fn(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.name, err)
	}
	return results, nil
}

func (r *Runtime) serviceEntry(name string) ffi.Func {
	dir := func(get func(Config) string) func(context.Context, []uint64) ([]uint64, error) {
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			return nil, r.writeStringAt(ctx, uint32(p[0]), get(r.cfg))
		}
	}
	meta := func(get func(Registration) string) func(context.Context, []uint64) ([]uint64, error) {
		return func(ctx context.Context, p []uint64) ([]uint64, error) {
			reg, err := r.registration(p[0])
			if err != nil {
				return nil, err
			}
			return nil, r.writeStringAt(ctx, uint32(p[1]), get(reg))
		}
	}

	var fn func(context.Context, []uint64) ([]uint64, error)
	switch name {
	case "get_method_ptr":
		fn = func(ctx context.Context, p []uint64) ([]uint64, error) {
			mname, err := r.readStringAt(uint32(p[0]))
			if err != nil {
				return nil, err
			}
			r.mu.Lock()
			addr := r.methods[mname]
			r.mu.Unlock()
			return []uint64{addr}, nil
		}
	case "get_base_dir":
		fn = dir(func(c Config) string { return c.BaseDir })
	case "get_extensions_dir":
		fn = dir(func(c Config) string { return c.ExtensionsDir })
	case "get_configs_dir":
		fn = dir(func(c Config) string { return c.ConfigsDir })
	case "get_data_dir":
		fn = dir(func(c Config) string { return c.DataDir })
	case "get_logs_dir":
		fn = dir(func(c Config) string { return c.LogsDir })
	case "get_cache_dir":
		fn = dir(func(c Config) string { return c.CacheDir })
	case "is_extension_loaded":
		fn = func(ctx context.Context, p []uint64) ([]uint64, error) {
			ename, err := r.readStringAt(uint32(p[0]))
			if err != nil {
				return nil, err
			}
			var constraint string
			if p[1] != 0 {
				if constraint, err = r.readStringAt(uint32(p[1])); err != nil {
					return nil, err
				}
			}
			r.mu.Lock()
			version, ok := r.loaded[ename]
			r.mu.Unlock()
			if ok && (constraint == "" || constraint == version) {
				return []uint64{1}, nil
			}
			return []uint64{0}, nil
		}
	case "get_plugin_id":
		fn = func(ctx context.Context, p []uint64) ([]uint64, error) {
			reg, err := r.registration(p[0])
			if err != nil {
				return nil, err
			}
			return []uint64{reg.ID}, nil
		}
	case "get_plugin_name":
		fn = meta(func(reg Registration) string { return reg.Manifest.Name })
	case "get_plugin_description":
		fn = meta(func(reg Registration) string { return reg.Manifest.Description })
	case "get_plugin_version":
		fn = meta(func(reg Registration) string { return reg.Manifest.Version })
	case "get_plugin_author":
		fn = meta(func(reg Registration) string { return reg.Manifest.Author })
	case "get_plugin_website":
		fn = meta(func(reg Registration) string { return reg.Manifest.Website })
	case "get_plugin_license":
		fn = meta(func(reg Registration) string { return reg.Manifest.License })
	case "get_plugin_location":
		fn = meta(func(reg Registration) string { return reg.Location })
	case "get_plugin_dependencies":
		fn = func(ctx context.Context, p []uint64) ([]uint64, error) {
			reg, err := r.registration(p[0])
			if err != nil {
				return nil, err
			}
			return nil, r.writeStringVectorAt(ctx, uint32(p[1]), reg.Manifest.DependencyNames())
		}
	default:
		panic("host: no service entry for symbol " + name)
	}
	return &hostFunc{name: name, fn: fn}
}

func (r *Runtime) registration(handle uint64) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.plugins[handle]
	if !ok {
		return Registration{}, fmt.Errorf("unknown plugin handle %d", handle)
	}
	return reg, nil
}

// coreCall invokes one of the core module's exports.
func (r *Runtime) coreCall(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	results, err := r.core.ExportedFunction(name).Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("core call %s: %w", name, err)
	}
	return results, nil
}

// stage allocates a block in core memory and fills it with b.
func (r *Runtime) stage(ctx context.Context, b []byte) (uint32, error) {
	results, err := r.coreCall(ctx, "allocate", uint64(len(b)))
	if err != nil {
		return 0, err
	}
	ptr := uint32(results[0])
	if !r.core.Memory().Write(ptr, b) {
		return 0, fmt.Errorf("staging write of %d bytes at 0x%x out of bounds", len(b), ptr)
	}
	return ptr, nil
}

func (r *Runtime) unstage(ctx context.Context, ptr, size uint32) error {
	_, err := r.coreCall(ctx, "deallocate", uint64(ptr), uint64(size))
	return err
}

// writeStringAt constructs a foreign string at out using the core's
// own string constructor, so ownership rules match plugin-constructed
// strings exactly.
func (r *Runtime) writeStringAt(ctx context.Context, out uint32, s string) error {
	if len(s) == 0 {
		_, err := r.coreCall(ctx, "construct_string", uint64(out), 0, 0)
		return err
	}
	ptr, err := r.stage(ctx, []byte(s))
	if err != nil {
		return err
	}
	if _, err := r.coreCall(ctx, "construct_string", uint64(out), uint64(ptr), uint64(len(s))); err != nil {
		return err
	}
	return r.unstage(ctx, ptr, uint32(len(s)))
}

// writeStringVectorAt constructs a foreign string vector at out.
// Element strings are built as temporaries, deep-copied by the vector
// constructor, then destroyed.
func (r *Runtime) writeStringVectorAt(ctx context.Context, out uint32, values []string) error {
	n := uint32(len(values))
	if n == 0 {
		_, err := r.coreCall(ctx, "construct_vector_string", uint64(out), 0, 0)
		return err
	}
	results, err := r.coreCall(ctx, "allocate", uint64(n*12))
	if err != nil {
		return err
	}
	block := uint32(results[0])
	for i, v := range values {
		if err := r.writeStringAt(ctx, block+uint32(i)*12, v); err != nil {
			return err
		}
	}
	if _, err := r.coreCall(ctx, "construct_vector_string", uint64(out), uint64(block), uint64(n)); err != nil {
		return err
	}
	for i := range values {
		if _, err := r.coreCall(ctx, "destroy_string", uint64(block+uint32(i)*12)); err != nil {
			return err
		}
	}
	return r.unstage(ctx, block, n*12)
}

// readStringAt decodes the string struct at addr from core memory.
func (r *Runtime) readStringAt(addr uint32) (string, error) {
	mem := r.core.Memory()
	header, ok := mem.Read(addr, 8)
	if !ok {
		return "", fmt.Errorf("string struct at 0x%x out of bounds", addr)
	}
	data := binary.LittleEndian.Uint32(header)
	length := binary.LittleEndian.Uint32(header[4:])
	if length == 0 {
		return "", nil
	}
	b, ok := mem.Read(data, length)
	if !ok {
		return "", fmt.Errorf("string data at 0x%x out of bounds", data)
	}
	return string(b), nil
}
