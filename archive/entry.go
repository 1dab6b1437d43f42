package archive

import (
	_ "crypto/sha256" // registers the canonical digest algorithm

	digest "github.com/opencontainers/go-digest"

	"github.com/meigma/nif/archive/internal/fb"
)

// Compression identifies the algorithm used to store an entry.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// ParseCompression parses a compression name as returned by String.
func ParseCompression(name string) (Compression, bool) {
	switch name {
	case "none", "":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}

// Entry describes one stored file.
type Entry struct {
	// Name is the normalized entry name (see NormalizeName).
	Name string

	// Offset is the byte offset of the stored payload in the archive.
	Offset uint64

	// Size is the stored payload size. For compressed entries this is the
	// compressed size.
	Size uint64

	// OriginalSize is the decompressed size.
	OriginalSize uint64

	// Compression is the algorithm used for the payload.
	Compression Compression

	// Digest is the digest of the decompressed content.
	Digest digest.Digest
}

func entryFromFlatBuffers(e *fb.Entry) Entry {
	return Entry{
		Name:         string(e.Name()),
		Offset:       e.Offset(),
		Size:         e.Size(),
		OriginalSize: e.OriginalSize(),
		Compression:  Compression(e.Compression()),
		Digest:       digest.Digest(e.Digest()),
	}
}
