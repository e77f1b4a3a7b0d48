// Package host provides the host side of the plugin interface.
//
// A Runtime instantiates the foreign core (a wasm module exporting the
// container entry points and the allocator pair) under wazero, serves
// the directory, metadata, and lookup entry points itself, and
// assembles the full capability table consumed by the plugin
// initialization handshake.
package host
