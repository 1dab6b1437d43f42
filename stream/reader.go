package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrShortBuffer is returned when a read extends past the end of the data.
	ErrShortBuffer = errors.New("stream: unexpected end of data")

	// ErrMalformed is returned when a length or terminator is inconsistent.
	ErrMalformed = errors.New("stream: malformed data")
)

// Reader is a forward-only cursor over an in-memory buffer.
//
// A Reader is shared by the header and all blocks of a container; its
// position is never reset between blocks.
type Reader struct {
	buf []byte
	pos int
	err error
}

// NewReader returns a Reader positioned at offset 0 of data.
// The data is retained; callers must not modify it while reading.
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// SetErr records err unless an error is already set.
// Codecs use it to report semantic validation failures.
func (r *Reader) SetErr(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Pos returns the current offset from the start of the buffer.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// next returns the next n bytes and advances the cursor.
func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.err = fmt.Errorf("%w: negative length %d", ErrMalformed, n)
		return nil
	}
	if n > r.Len() {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.pos, r.Len())
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Skip advances the cursor by n bytes and returns the skipped bytes.
// The returned slice aliases the underlying buffer.
func (r *Reader) Skip(n int) []byte {
	return r.next(n)
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) []byte {
	b := r.next(n)
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// U8 reads a single byte.
func (r *Reader) U8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a byte-sized boolean.
func (r *Reader) Bool() bool {
	return r.U8() != 0
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 {
	return int32(r.U32()) //nolint:gosec // two's complement reinterpretation
}

// F32 reads a little-endian IEEE 754 float32.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Count reads a uint32 element count and checks that at least
// count*elemSize bytes remain, so corrupt counts fail before allocating.
func (r *Reader) Count(elemSize int) int {
	n := r.U32()
	if r.err != nil {
		return 0
	}
	if elemSize > 0 && uint64(n)*uint64(elemSize) > uint64(r.Len()) { //nolint:gosec // Len is non-negative
		r.err = fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrShortBuffer, n, r.Len())
		return 0
	}
	return int(n)
}

// SizedString reads a string prefixed with a uint32 byte length.
func (r *Reader) SizedString() string {
	n := r.Count(1)
	return string(r.next(n))
}

// ExportString reads a string prefixed with a uint8 length that includes a
// trailing NUL byte.
func (r *Reader) ExportString() string {
	n := int(r.U8())
	b := r.next(n)
	if b == nil || n == 0 {
		return ""
	}
	if b[n-1] != 0 {
		r.SetErr(fmt.Errorf("%w: export string missing terminator", ErrMalformed))
		return ""
	}
	return string(b[:n-1])
}

// Line reads bytes up to and excluding the next '\n'. The newline is consumed.
func (r *Reader) Line(maxLen int) string {
	if r.err != nil {
		return ""
	}
	rest := r.buf[r.pos:]
	if maxLen > 0 && len(rest) > maxLen {
		rest = rest[:maxLen]
	}
	i := bytes.IndexByte(rest, '\n')
	if i < 0 {
		r.err = fmt.Errorf("%w: line terminator not found", ErrMalformed)
		return ""
	}
	s := string(rest[:i])
	r.pos += i + 1
	return s
}
