// Package node implements the block kinds of 20.2.0.7 containers written by
// Bethesda tools, and the default registry that maps type names to them.
//
// References to other blocks are stored as Ref (block index, NoRef for none)
// and references to header strings as StringRef (string table index,
// NoString for none). Both are resolved by the caller against the owning
// container.
package node
