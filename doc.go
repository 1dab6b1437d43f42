// Package nif loads and saves NetImmerse/Gamebryo scene-graph containers.
//
// A container is a versioned header followed by typed binary blocks:
//
//	[header][block 0]...[block N-1][uint32 1][uint32 0]
//
// The header lists every block's type name and byte size. Load resolves the
// bytes for a logical name (a loose file under a base directory first, then
// any configured archive), parses the header and decodes each block through a
// Registry of factories keyed by type name.
//
// Blocks of unregistered types are not errors: they are skipped by their
// declared size and kept as tombstones that carry their raw bytes, so Save
// writes them back unchanged. A registered type whose data fails to decode
// aborts the whole load.
//
// Concrete block kinds live in package node; node.Registry returns the
// default registry.
package nif
