package archive

import (
	"fmt"

	"github.com/meigma/nif/internal/sizing"
)

// validateForRead checks that an entry is safe to read from a payload region
// of the given size. It validates:
//   - Sizes are within maxFileSize (if limit > 0)
//   - Offset + size doesn't overflow
//   - The payload range is within the data region
//   - Uncompressed entries have equal stored and original sizes
//   - The digest is well formed
func validateForRead(entry *Entry, dataSize, maxFileSize uint64) error {
	if maxFileSize > 0 {
		if entry.Size > maxFileSize || entry.OriginalSize > maxFileSize {
			return ErrSizeOverflow
		}
	}

	end, ok := sizing.AddUint64(entry.Offset, entry.Size)
	if !ok {
		return ErrSizeOverflow
	}
	if end > dataSize {
		return ErrSizeOverflow
	}

	if entry.Compression == CompressionNone && entry.Size != entry.OriginalSize {
		return fmt.Errorf("%w: size mismatch", ErrDecompression)
	}

	if err := entry.Digest.Validate(); err != nil {
		return fmt.Errorf("invalid digest: %w", err)
	}
	return nil
}
