// Package plugbridge is the umbrella for a value-marshaling layer
// between Go plugins and a foreign host that owns the heap the shared
// containers live on.
//
// The module is organized as:
//
//   - ffi: the raw call layer. Write-once symbol slots, the versioned
//     capability table binder, and the Env capability context every
//     container operation threads through.
//   - foreign: the owned container types. String, the per-kind Vector,
//     and the tagged Variant, all backed by foreign memory.
//   - geom: plain vector and matrix value types with fixed layouts.
//   - plugin: the initialization handshake and lifecycle hooks.
//   - host: the host side. Runs the foreign core under wazero and
//     serves the directory, metadata, and lookup entry points.
//   - manifest: the plugin manifest document.
//   - hosttest: an in-process foreign core for tests and examples.
package plugbridge
