//go:generate flatc --go --go-namespace fb -o internal schema/index.fbs

// Package archive implements the packed archive searched when no loose file
// exists for a logical name.
//
// An archive is a single file:
//
//	[entry payloads...][index][uint32 index length]["NPAK"]
//
// The index is FlatBuffers-encoded and sorted by normalized entry name,
// enabling O(log n) lookups without reading payloads. Each payload is stored
// raw, zstd-compressed or lz4-compressed and carries a content digest that is
// verified on every read.
package archive
