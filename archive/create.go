package archive

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	digest "github.com/opencontainers/go-digest"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/nif/archive/internal/fb"
)

// Sentinel errors for archive creation.
var (
	// ErrTooManyFiles is returned when the file count exceeds the configured limit.
	ErrTooManyFiles = errors.New("archive: too many files")

	// ErrDuplicateName is returned when two files normalize to the same name.
	ErrDuplicateName = errors.New("archive: duplicate entry name")
)

// sourceFile is a regular file found under the input directory.
type sourceFile struct {
	path string // slash-separated, relative to the input directory
	name string // normalized entry name
	info fs.FileInfo
}

// payload is the stored form of one file.
type payload struct {
	data         []byte
	originalSize uint64
	compression  Compression
	digest       digest.Digest
}

// Create builds an archive from the regular files under dir and writes it
// to w.
//
// Entry names are the normalized paths relative to dir. Symbolic links and
// empty directories are skipped. Files are compressed in parallel and held
// in memory until they are written, so memory use scales with the
// compressed size of the input.
//
// The context can be used for cancellation of long-running archive creation.
func Create(ctx context.Context, dir string, w io.Writer, opts ...CreateOption) error {
	cfg := createConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxFiles == 0 {
		cfg.maxFiles = DefaultMaxFiles
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	logger.Info("creating archive", "dir", dir, "compression", cfg.compression.String())

	files, err := collectFiles(ctx, root, cfg.maxFiles)
	if err != nil {
		return err
	}

	var enc *zstd.Encoder
	if cfg.compression == CompressionZstd {
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		defer enc.Close()
	}

	payloads := make([]payload, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			compression := cfg.compression
			if compression != CompressionNone && cfg.shouldSkip(f.path, f.info) {
				compression = CompressionNone
			}
			p, err := storeFile(root, f, compression, enc)
			if err != nil {
				return fmt.Errorf("store %s: %w", f.path, err)
			}
			payloads[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cw := &countingWriter{W: w}
	entries := make([]Entry, len(files))
	for i, f := range files {
		p := &payloads[i]
		entries[i] = Entry{
			Name:         f.name,
			Offset:       cw.N,
			Size:         uint64(len(p.data)),
			OriginalSize: p.originalSize,
			Compression:  p.compression,
			Digest:       p.digest,
		}
		if _, err := cw.Write(p.data); err != nil {
			return err
		}
		p.data = nil
	}

	indexData := buildIndex(entries, cw.N)
	if uint64(len(indexData)) > math.MaxUint32 {
		return fmt.Errorf("%w: index of %d bytes", ErrSizeOverflow, len(indexData))
	}
	var footer [footerSize]byte
	binary.LittleEndian.PutUint32(footer[:4], uint32(len(indexData))) //nolint:gosec // checked above
	copy(footer[4:], magic[:])
	if _, err := cw.Write(indexData); err != nil {
		return err
	}
	if _, err := cw.Write(footer[:]); err != nil {
		return err
	}

	logger.Debug("archive written", "entries", len(entries), "size", cw.N)
	return nil
}

// collectFiles walks root and returns its regular files sorted by entry name.
func collectFiles(ctx context.Context, root *os.Root, maxFiles int) ([]sourceFile, error) {
	var files []sourceFile
	err := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if maxFiles > 0 && len(files) >= maxFiles {
			return ErrTooManyFiles
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, sourceFile{path: path, name: NormalizeName(path), info: info})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b sourceFile) int {
		return strings.Compare(a.name, b.name)
	})
	for i := 1; i < len(files); i++ {
		if files[i].name == files[i-1].name {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateName, files[i-1].path, files[i].path)
		}
	}
	return files, nil
}

// storeFile reads a file and returns its stored payload. Compressed output
// that is not smaller than the input is stored raw.
func storeFile(root *os.Root, f sourceFile, compression Compression, enc *zstd.Encoder) (payload, error) {
	file, err := root.Open(filepath.FromSlash(f.path))
	if err != nil {
		return payload{}, err
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return payload{}, err
	}

	p := payload{
		data:         content,
		originalSize: uint64(len(content)),
		compression:  CompressionNone,
		digest:       digest.FromBytes(content),
	}

	var compressed []byte
	switch compression {
	case CompressionNone:
		return p, nil
	case CompressionZstd:
		compressed = enc.EncodeAll(content, make([]byte, 0, len(content)/2))
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(content)))
		n, err := lz4.CompressBlock(content, dst, nil)
		if err != nil {
			return payload{}, fmt.Errorf("lz4 compress: %w", err)
		}
		// Zero means the input is incompressible.
		if n > 0 {
			compressed = dst[:n]
		}
	default:
		return payload{}, fmt.Errorf("unsupported compression: %d", compression)
	}

	if compressed != nil && len(compressed) < len(content) {
		p.data = bytes.Clone(compressed)
		p.compression = compression
	}
	return p, nil
}

// buildIndex serializes entries to FlatBuffers format.
func buildIndex(entries []Entry, dataSize uint64) []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	entryOffsets := make([]flatbuffers.UOffsetT, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		nameOffset := builder.CreateString(e.Name)
		digestOffset := builder.CreateString(e.Digest.String())

		fb.EntryStart(builder)
		fb.EntryAddName(builder, nameOffset)
		fb.EntryAddOffset(builder, e.Offset)
		fb.EntryAddSize(builder, e.Size)
		fb.EntryAddOriginalSize(builder, e.OriginalSize)
		fb.EntryAddCompression(builder, fb.Compression(e.Compression))
		fb.EntryAddDigest(builder, digestOffset)
		entryOffsets[i] = fb.EntryEnd(builder)
	}

	fb.IndexStartEntriesVector(builder, len(entries))
	for i := len(entryOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entryOffsets[i])
	}
	entriesOffset := builder.EndVector(len(entries))

	fb.IndexStart(builder)
	fb.IndexAddVersion(builder, indexVersion)
	fb.IndexAddEntries(builder, entriesOffset)
	fb.IndexAddDataSize(builder, dataSize)
	indexOffset := fb.IndexEnd(builder)

	builder.Finish(indexOffset)
	return builder.FinishedBytes()
}

// countingWriter wraps a writer and counts bytes written.
type countingWriter struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	cw.N += uint64(n) //nolint:gosec // n is non-negative
	return n, err
}
