package ffi

import "fmt"

// RequiredVersion is the minimum ABI version this binder accepts.
// Hosts negotiating a lower version are rejected before any binding
// happens.
const RequiredVersion int32 = 1

// TableLen is the number of entries the version-1 capability table
// carries, in the fixed order Bind consumes them.
const TableLen = 23 + 5*NumElemKinds

// StringFuncs holds the five foreign entry points backing the foreign
// string container.
type StringFuncs struct {
	Construct Slot
	Destroy   Slot
	Data      Slot
	Length    Slot
	Assign    Slot
}

// VectorFuncs holds the five foreign entry points backing one element
// kind's vector instantiation. Mixing one kind's funcs with another
// kind's container is undefined on the foreign side; the per-kind
// grouping here is what keeps that from being expressible.
type VectorFuncs struct {
	Construct Slot
	Destroy   Slot
	Size      Slot
	Data      Slot
	Assign    Slot
}

// Capabilities is every foreign entry point the ABI names, each behind
// a write-once slot. A Capabilities value starts all-unset; Bind
// resolves every slot or none.
type Capabilities struct {
	GetMethodPtr Slot

	GetBaseDir       Slot
	GetExtensionsDir Slot
	GetConfigsDir    Slot
	GetDataDir       Slot
	GetLogsDir       Slot
	GetCacheDir      Slot

	IsExtensionLoaded Slot

	GetPluginID           Slot
	GetPluginName         Slot
	GetPluginDescription  Slot
	GetPluginVersion      Slot
	GetPluginAuthor       Slot
	GetPluginWebsite      Slot
	GetPluginLicense      Slot
	GetPluginLocation     Slot
	GetPluginDependencies Slot

	String StringFuncs

	DestroyVariant Slot

	Vectors [NumElemKinds]VectorFuncs
}

// NewCapabilities returns an all-unset capability table with every slot
// carrying its ABI symbol name.
func NewCapabilities() *Capabilities {
	c := &Capabilities{}
	names := TableSymbols()
	for i, s := range c.ordered() {
		s.name = names[i]
	}
	return c
}

// ordered returns pointers to every slot in the exact order the
// capability table supplies their addresses. This order is the ABI
// contract: one address is consumed per slot, and changing the sequence
// without bumping RequiredVersion silently corrupts every later
// binding.
func (c *Capabilities) ordered() []*Slot {
	slots := make([]*Slot, 0, TableLen)
	slots = append(slots,
		&c.GetMethodPtr,
		&c.GetBaseDir, &c.GetExtensionsDir, &c.GetConfigsDir,
		&c.GetDataDir, &c.GetLogsDir, &c.GetCacheDir,
		&c.IsExtensionLoaded,
		&c.GetPluginID, &c.GetPluginName, &c.GetPluginDescription,
		&c.GetPluginVersion, &c.GetPluginAuthor, &c.GetPluginWebsite,
		&c.GetPluginLicense, &c.GetPluginLocation, &c.GetPluginDependencies,
		&c.String.Construct, &c.String.Destroy, &c.String.Data,
		&c.String.Length, &c.String.Assign,
		&c.DestroyVariant,
	)
	// Vector entry points arrive operation-major: every kind's
	// construct, then every kind's destroy, and so on.
	for k := range c.Vectors {
		slots = append(slots, &c.Vectors[k].Construct)
	}
	for k := range c.Vectors {
		slots = append(slots, &c.Vectors[k].Destroy)
	}
	for k := range c.Vectors {
		slots = append(slots, &c.Vectors[k].Size)
	}
	for k := range c.Vectors {
		slots = append(slots, &c.Vectors[k].Data)
	}
	for k := range c.Vectors {
		slots = append(slots, &c.Vectors[k].Assign)
	}
	return slots
}

// TableSymbols returns the ABI symbol names of every capability table
// entry, in binding order. Hosts that expose the table as named exports
// resolve them in exactly this sequence.
func TableSymbols() []string {
	names := make([]string, 0, TableLen)
	names = append(names,
		"get_method_ptr",
		"get_base_dir", "get_extensions_dir", "get_configs_dir",
		"get_data_dir", "get_logs_dir", "get_cache_dir",
		"is_extension_loaded",
		"get_plugin_id", "get_plugin_name", "get_plugin_description",
		"get_plugin_version", "get_plugin_author", "get_plugin_website",
		"get_plugin_license", "get_plugin_location", "get_plugin_dependencies",
		"construct_string", "destroy_string", "get_string_data",
		"get_string_length", "assign_string",
		"destroy_variant",
	)
	for _, op := range []string{"construct_vector_", "destroy_vector_", "get_vector_size_", "get_vector_data_", "assign_vector_"} {
		for k := 0; k < NumElemKinds; k++ {
			names = append(names, op+ElemKind(k).String())
		}
	}
	return names
}

// Bind resolves the host-supplied capability table into the slots.
//
// The version gate runs first: if the negotiated version is below
// RequiredVersion, Bind returns RequiredVersion and binds nothing, so a
// rejected handshake leaves the table in a clean, all-unset state.
// On acceptance Bind returns 0 after walking the table in the fixed
// order; a short table, a nil entry, or an already-bound slot is a
// contract violation and panics.
func (c *Capabilities) Bind(table []Func, version int32) int32 {
	if version < RequiredVersion {
		return RequiredVersion
	}
	slots := c.ordered()
	if len(table) < len(slots) {
		panic(fmt.Sprintf("ffi: capability table has %d entries, version %d requires %d", len(table), version, len(slots)))
	}
	for i, s := range slots {
		s.bind(table[i])
	}
	return 0
}
