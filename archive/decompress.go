package archive

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/nif/internal/sizing"
)

// decompressPool manages reusable zstd decoders to reduce allocation overhead.
type decompressPool struct {
	pool             *sync.Pool
	maxDecoderMemory uint64
}

// newDecompressPool creates a pool of single-threaded zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func newDecompressPool(maxMemory uint64) *decompressPool {
	p := &decompressPool{maxDecoderMemory: maxMemory}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := p.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// get returns a decoder configured to read from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *decompressPool) get(r io.Reader) (*zstd.Decoder, func(), error) {
	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		// Pool's New function failed, try directly
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		// Reset failed, close this one and create new
		dec.Close()
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// newDecoder creates a new zstd decoder with the configured memory limit.
func (p *decompressPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(false),
	}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}

// decompress reads the payload of entry from section and returns the
// decompressed content, never reading more than entry.OriginalSize bytes of
// output.
func (p *decompressPool) decompress(entry *Entry, section io.Reader) ([]byte, error) {
	switch entry.Compression {
	case CompressionNone:
		return readBounded(section, entry.Size)

	case CompressionZstd:
		dec, release, err := p.get(section)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		defer release()
		content, err := readBounded(dec, entry.OriginalSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		return content, nil

	case CompressionLZ4:
		compressed, err := readBounded(section, entry.Size)
		if err != nil {
			return nil, err
		}
		size, err := sizing.ToInt(entry.OriginalSize, ErrSizeOverflow)
		if err != nil {
			return nil, err
		}
		content := make([]byte, size)
		n, err := lz4.UncompressBlock(compressed, content)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
		}
		return content[:n], nil

	default:
		return nil, fmt.Errorf("%w: unknown compression algorithm %d", ErrDecompression, entry.Compression)
	}
}

// readBounded reads r to EOF and fails if it yields more than limit bytes.
func readBounded(r io.Reader, limit uint64) ([]byte, error) {
	n, err := sizing.ToInt64(limit, ErrSizeOverflow)
	if err != nil || n == math.MaxInt64 {
		return nil, ErrSizeOverflow
	}
	data, err := io.ReadAll(io.LimitReader(r, n+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > n {
		return nil, ErrSizeOverflow
	}
	return data, nil
}
