package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/nif/internal/sizing"
)

const (
	// DefaultMaxFileSize is the default maximum entry size (256MB).
	DefaultMaxFileSize = 256 << 20

	// DefaultMaxDecoderMemory is the default maximum zstd decoder memory (256MB).
	DefaultMaxDecoderMemory = 256 << 20

	// DefaultMaxIndexSize is the default maximum index size (64MB).
	DefaultMaxIndexSize = 64 << 20
)

// magic terminates every archive.
var magic = [4]byte{'N', 'P', 'A', 'K'}

// footerSize is the index length plus the magic.
const footerSize = 8

// Sentinel errors.
var (
	// ErrNotArchive is returned when the source does not end with the archive magic.
	ErrNotArchive = errors.New("archive: not an archive")

	// ErrCorruptIndex is returned when the index cannot be parsed.
	ErrCorruptIndex = errors.New("archive: corrupt index")

	// ErrDigestMismatch is returned when entry content does not match its digest.
	ErrDigestMismatch = errors.New("archive: digest mismatch")

	// ErrDecompression is returned when decompression fails.
	ErrDecompression = errors.New("archive: decompression failed")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("archive: size overflow")
)

// ByteSource provides random access to archive bytes.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// fileSource adapts an *os.File to ByteSource.
type fileSource struct {
	*os.File
	size int64
}

func (f *fileSource) Size() int64 {
	return f.size
}

// Archive provides lookups and reads over a packed archive.
//
// Archive is safe for concurrent use.
type Archive struct {
	src              ByteSource
	closer           io.Closer
	idx              *index
	pool             *decompressPool
	maxFileSize      uint64
	maxDecoderMemory uint64
	maxIndexSize     uint64
	readGroup        singleflight.Group // zero value is valid
	logger           *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open opens the archive file at path. The caller must Close it.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := New(&fileSource{File: f, size: info.Size()}, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// New reads the index of the archive held by src.
func New(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:              src,
		maxFileSize:      DefaultMaxFileSize,
		maxDecoderMemory: DefaultMaxDecoderMemory,
		maxIndexSize:     DefaultMaxIndexSize,
	}
	for _, opt := range opts {
		opt(a)
	}

	size := src.Size()
	if size < footerSize {
		return nil, ErrNotArchive
	}
	var footer [footerSize]byte
	if _, err := src.ReadAt(footer[:], size-footerSize); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read footer: %w", err)
	}
	if !bytes.Equal(footer[4:], magic[:]) {
		return nil, ErrNotArchive
	}
	indexLen := uint64(binary.LittleEndian.Uint32(footer[:4]))
	if a.maxIndexSize > 0 && indexLen > a.maxIndexSize {
		return nil, fmt.Errorf("%w: index of %d bytes", ErrSizeOverflow, indexLen)
	}
	if indexLen == 0 || int64(indexLen) > size-footerSize { //nolint:gosec // indexLen < 2^32
		return nil, fmt.Errorf("%w: index length %d", ErrCorruptIndex, indexLen)
	}

	dataSize := size - footerSize - int64(indexLen) //nolint:gosec // indexLen < 2^32
	indexData := make([]byte, indexLen)
	if _, err := src.ReadAt(indexData, dataSize); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx, err := loadIndex(indexData)
	if err != nil {
		return nil, err
	}
	if idx.DataSize() != uint64(dataSize) { //nolint:gosec // dataSize is non-negative
		return nil, fmt.Errorf("%w: index records %d data bytes, archive has %d", ErrCorruptIndex, idx.DataSize(), dataSize)
	}

	a.idx = idx
	a.pool = newDecompressPool(a.maxDecoderMemory)
	a.log().Debug("archive opened", "entries", idx.Len(), "data_size", dataSize)
	return a, nil
}

// Close releases the file opened by Open. It is a no-op for archives
// created with New.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return a.idx.Len()
}

// Entries returns an iterator over all entries in name order.
func (a *Archive) Entries() iter.Seq[Entry] {
	return a.idx.entries()
}

// Entry returns the metadata for name.
func (a *Archive) Entry(name string) (Entry, bool) {
	return a.idx.lookup(NormalizeName(name))
}

// Exists reports whether the archive holds name.
func (a *Archive) Exists(name string) bool {
	_, ok := a.Entry(name)
	return ok
}

// ReadFile returns the decompressed, digest-verified content of name.
//
// Concurrent reads of the same entry share one decompression.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	key := NormalizeName(name)
	entry, ok := a.idx.lookup(key)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}

	v, err, shared := a.readGroup.Do(key, func() (any, error) {
		return a.readEntry(&entry)
	})
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	content, _ := v.([]byte) //nolint:errcheck // readEntry always returns []byte
	if shared {
		// Each caller owns its result.
		content = bytes.Clone(content)
	}
	return content, nil
}

// readEntry reads, decompresses and verifies one entry.
func (a *Archive) readEntry(entry *Entry) ([]byte, error) {
	if err := validateForRead(entry, a.idx.DataSize(), a.maxFileSize); err != nil {
		return nil, err
	}
	offset, err := sizing.ToInt64(entry.Offset, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	length, err := sizing.ToInt64(entry.Size, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	section := io.NewSectionReader(a.src, offset, length)

	content, err := a.pool.decompress(entry, section)
	if err != nil {
		return nil, err
	}
	if uint64(len(content)) != entry.OriginalSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrDecompression, len(content), entry.OriginalSize)
	}

	verifier := entry.Digest.Verifier()
	_, _ = verifier.Write(content) //nolint:errcheck // hash writes cannot fail
	if !verifier.Verified() {
		return nil, ErrDigestMismatch
	}

	a.log().Debug("archive entry read", "name", entry.Name, "compression", entry.Compression.String(), "size", len(content))
	return content, nil
}
