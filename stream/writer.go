package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes little-endian values to an io.Writer and counts the bytes
// written.
//
// Writing to io.Discard is how block sizes are measured.
type Writer struct {
	w       io.Writer
	n       int64
	err     error
	scratch [4]byte
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

// SetErr records err unless an error is already set.
func (w *Writer) SetErr(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int64 {
	return w.n
}

// Bytes writes p verbatim.
func (w *Writer) Bytes(p []byte) {
	if w.err != nil || len(p) == 0 {
		return
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = err
		return
	}
	if n != len(p) {
		w.err = io.ErrShortWrite
	}
}

// U8 writes a single byte.
func (w *Writer) U8(v uint8) {
	w.scratch[0] = v
	w.Bytes(w.scratch[:1])
}

// Bool writes a byte-sized boolean.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	w.Bytes(w.scratch[:2])
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.Bytes(w.scratch[:4])
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v)) //nolint:gosec // two's complement reinterpretation
}

// F32 writes a little-endian IEEE 754 float32.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// Count writes a uint32 element count.
func (w *Writer) Count(n int) {
	if n < 0 || n > math.MaxUint32 {
		w.SetErr(fmt.Errorf("%w: count %d out of range", ErrMalformed, n))
		return
	}
	w.U32(uint32(n))
}

// SizedString writes s prefixed with a uint32 byte length.
func (w *Writer) SizedString(s string) {
	w.Count(len(s))
	w.Bytes([]byte(s))
}

// ExportString writes s prefixed with a uint8 length that includes a
// trailing NUL byte.
func (w *Writer) ExportString(s string) {
	if len(s) > math.MaxUint8-1 {
		w.SetErr(fmt.Errorf("%w: export string longer than %d bytes", ErrMalformed, math.MaxUint8-1))
		return
	}
	w.U8(uint8(len(s) + 1)) //nolint:gosec // bounded above
	w.Bytes([]byte(s))
	w.U8(0)
}

// Line writes s followed by '\n'.
func (w *Writer) Line(s string) {
	w.Bytes([]byte(s))
	w.U8('\n')
}
