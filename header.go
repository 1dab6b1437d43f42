package nif

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/meigma/nif/internal/sizing"
	"github.com/meigma/nif/stream"
)

// Well-known format versions.
const (
	// Version20207 is the version written by Skyrim and Fallout 4 era tools.
	Version20207 uint32 = 0x14020007

	// MinVersion is the oldest version that records per-block sizes, which
	// the loader needs to skip unrecognized blocks.
	MinVersion uint32 = 0x14020005
)

// Header defaults used by NewHeader.
const (
	DefaultUserVersion uint32 = 12
	DefaultBSVersion   uint32 = 83
)

const (
	headerPrefix  = "Gamebryo File Format, Version "
	legacyPrefix  = "NetImmerse File Format, Version "
	maxHeaderLine = 128
	littleEndian  = 1
)

var errUnsupportedVersion = errors.New("unsupported version")

// Header is the container prologue: version information, export strings, the
// ordered block descriptor list and the string table.
type Header struct {
	Version     uint32
	UserVersion uint32
	BSVersion   uint32

	Creator       string
	ProcessScript string
	ExportScript  string
	MaxFilepath   string
	BSUnknown     uint32

	blockTypes []string
	typeIndex  []uint16
	sizes      []uint32

	strings   []string
	stringIdx map[string]int
	maxString uint32

	groups []uint32
}

// NewHeader returns an empty header for version 20.2.0.7.
func NewHeader() *Header {
	return &Header{
		Version:     Version20207,
		UserVersion: DefaultUserVersion,
		BSVersion:   DefaultBSVersion,
		stringIdx:   make(map[string]int),
	}
}

// VersionString formats a packed version as "a.b.c.d".
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", v>>24, (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF)
}

// ParseVersion parses "a.b.c.d" into a packed version.
func ParseVersion(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	var v uint32
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v = v<<8 | uint32(n)
	}
	return v, nil
}

// hasBSHeader reports whether the Bethesda export block is present.
func (h *Header) hasBSHeader() bool {
	return h.UserVersion >= 3
}

// NumBlocks returns the number of declared blocks.
func (h *Header) NumBlocks() int {
	return len(h.typeIndex)
}

// BlockType returns the declared type name of block i.
func (h *Header) BlockType(i int) string {
	return h.blockTypes[h.typeIndex[i]]
}

// BlockSize returns the declared byte size of block i.
func (h *Header) BlockSize(i int) uint32 {
	return h.sizes[i]
}

// BlockTypes returns the distinct block type names in first-use order.
func (h *Header) BlockTypes() []string {
	return append([]string(nil), h.blockTypes...)
}

// String returns entry i of the string table.
func (h *Header) String(i int) (string, bool) {
	if i < 0 || i >= len(h.strings) {
		return "", false
	}
	return h.strings[i], true
}

// Strings returns a copy of the string table.
func (h *Header) Strings() []string {
	return append([]string(nil), h.strings...)
}

// AddString returns the index of s in the string table, appending it if it
// is not present. Indices are never reused or compacted.
func (h *Header) AddString(s string) int {
	if h.stringIdx == nil {
		h.stringIdx = make(map[string]int)
	}
	if i, ok := h.stringIdx[s]; ok {
		return i
	}
	h.strings = append(h.strings, s)
	i := len(h.strings) - 1
	h.stringIdx[s] = i
	h.maxString = max(h.maxString, stringLen(s))
	return i
}

// stringLen returns len(s) clamped to the uint32 range.
func stringLen(s string) uint32 {
	if uint64(len(s)) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(len(s)) //nolint:gosec // bounded above
}

// addBlock appends a descriptor for a block of the given type and size.
func (h *Header) addBlock(typeName string, size uint32) error {
	idx, err := h.typeSlot(typeName)
	if err != nil {
		return err
	}
	h.typeIndex = append(h.typeIndex, idx)
	h.sizes = append(h.sizes, size)
	return nil
}

// typeSlot returns the index of typeName in the type list, appending it if needed.
func (h *Header) typeSlot(typeName string) (uint16, error) {
	for i, t := range h.blockTypes {
		if t == typeName {
			return uint16(i), nil //nolint:gosec // bounded by the check below
		}
	}
	if len(h.blockTypes) >= math.MaxUint16 {
		return 0, fmt.Errorf("too many block types: %d", len(h.blockTypes)+1)
	}
	h.blockTypes = append(h.blockTypes, typeName)
	return uint16(len(h.blockTypes) - 1), nil //nolint:gosec // bounded above
}

// update rebuilds the descriptor list from blocks. Present blocks report
// their encoded size; tombstones report the length of their raw bytes.
func (h *Header) update(blocks []Block) error {
	h.blockTypes = h.blockTypes[:0]
	h.typeIndex = h.typeIndex[:0]
	h.sizes = h.sizes[:0]

	for i, b := range blocks {
		var size int64
		switch {
		case b.Object != nil:
			n, err := encodedSize(h, b.Object)
			if err != nil {
				return &Error{Kind: KindWrite, Block: i, Type: b.Type, Err: err}
			}
			size = n
		case b.Raw != nil:
			size = int64(len(b.Raw))
		default:
			return &Error{Kind: KindWrite, Block: i, Type: b.Type, Err: errors.New("tombstone has no raw bytes")}
		}
		size32, err := sizing.ToUint32(size, ErrSizeOverflow)
		if err != nil {
			return &Error{Kind: KindWrite, Block: i, Type: b.Type, Err: fmt.Errorf("block size %d: %w", size, err)}
		}
		if err := h.addBlock(b.Type, size32); err != nil {
			return &Error{Kind: KindWrite, Block: i, Type: b.Type, Err: err}
		}
	}

	h.maxString = 0
	for _, s := range h.strings {
		h.maxString = max(h.maxString, stringLen(s))
	}
	return nil
}

// Read parses the header from r, replacing all header state.
func (h *Header) Read(r *stream.Reader) error {
	*h = Header{stringIdx: make(map[string]int)}

	line := r.Line(maxHeaderLine)
	if r.Err() != nil {
		return fmt.Errorf("header line: %w", r.Err())
	}
	if !strings.HasPrefix(line, headerPrefix) && !strings.HasPrefix(line, legacyPrefix) {
		return fmt.Errorf("unrecognized header line %q", line)
	}

	h.Version = r.U32()
	if r.Err() == nil && h.Version < MinVersion {
		return fmt.Errorf("%w: %s", errUnsupportedVersion, VersionString(h.Version))
	}
	if endian := r.U8(); r.Err() == nil && endian != littleEndian {
		return fmt.Errorf("%w: endian type %d", errUnsupportedVersion, endian)
	}
	h.UserVersion = r.U32()
	blockCount := r.U32()
	if r.Err() == nil && blockCount > math.MaxInt32 {
		return fmt.Errorf("%w: block count %d", stream.ErrMalformed, blockCount)
	}
	numBlocks := int(blockCount)

	if h.hasBSHeader() {
		h.BSVersion = r.U32()
		h.Creator = r.ExportString()
		if h.BSVersion > 130 {
			h.BSUnknown = r.U32()
		}
		if h.BSVersion < 131 {
			h.ProcessScript = r.ExportString()
		}
		h.ExportScript = r.ExportString()
		if h.BSVersion >= 103 {
			h.MaxFilepath = r.ExportString()
		}
	}

	if r.Err() != nil {
		return r.Err()
	}

	numTypes := int(r.U16())
	h.blockTypes = make([]string, 0, min(numTypes, r.Len()/4))
	for range numTypes {
		h.blockTypes = append(h.blockTypes, r.SizedString())
		if r.Err() != nil {
			return r.Err()
		}
	}

	// Each block needs two bytes of type index and four of size.
	if r.Err() == nil && numBlocks > r.Len()/6 {
		return fmt.Errorf("%w: %d blocks declared with %d bytes left", stream.ErrShortBuffer, numBlocks, r.Len())
	}
	h.typeIndex = make([]uint16, numBlocks)
	for i := range h.typeIndex {
		h.typeIndex[i] = r.U16()
		if r.Err() == nil && int(h.typeIndex[i]) >= len(h.blockTypes) {
			return fmt.Errorf("%w: block %d type index %d out of range", stream.ErrMalformed, i, h.typeIndex[i])
		}
	}
	h.sizes = make([]uint32, numBlocks)
	for i := range h.sizes {
		h.sizes[i] = r.U32()
	}

	numStrings := r.Count(4)
	h.maxString = r.U32()
	h.strings = make([]string, 0, numStrings)
	for range numStrings {
		s := r.SizedString()
		if r.Err() != nil {
			return r.Err()
		}
		h.strings = append(h.strings, s)
		if _, ok := h.stringIdx[s]; !ok {
			h.stringIdx[s] = len(h.strings) - 1
		}
	}

	numGroups := r.Count(4)
	h.groups = make([]uint32, numGroups)
	for i := range h.groups {
		h.groups[i] = r.U32()
	}
	return r.Err()
}

// Write encodes the header to w.
func (h *Header) Write(w *stream.Writer) error {
	if len(h.typeIndex) != len(h.sizes) {
		return fmt.Errorf("descriptor mismatch: %d types, %d sizes", len(h.typeIndex), len(h.sizes))
	}
	if h.Version < MinVersion {
		return fmt.Errorf("%w: %s", errUnsupportedVersion, VersionString(h.Version))
	}

	w.Line(headerPrefix + VersionString(h.Version))
	w.U32(h.Version)
	w.U8(littleEndian)
	w.U32(h.UserVersion)
	w.Count(len(h.typeIndex))

	if h.hasBSHeader() {
		w.U32(h.BSVersion)
		w.ExportString(h.Creator)
		if h.BSVersion > 130 {
			w.U32(h.BSUnknown)
		}
		if h.BSVersion < 131 {
			w.ExportString(h.ProcessScript)
		}
		w.ExportString(h.ExportScript)
		if h.BSVersion >= 103 {
			w.ExportString(h.MaxFilepath)
		}
	}

	w.U16(uint16(len(h.blockTypes))) //nolint:gosec // typeSlot caps the list
	for _, t := range h.blockTypes {
		w.SizedString(t)
	}
	for _, idx := range h.typeIndex {
		w.U16(idx)
	}
	for _, size := range h.sizes {
		w.U32(size)
	}

	w.Count(len(h.strings))
	w.U32(h.maxString)
	for _, s := range h.strings {
		w.SizedString(s)
	}

	w.Count(len(h.groups))
	for _, g := range h.groups {
		w.U32(g)
	}
	return w.Err()
}
