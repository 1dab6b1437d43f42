// Package testutil provides helpers shared by tests across packages.
package testutil

import "bytes"

// MemSource is an in-memory random-access source for archive tests.
type MemSource struct {
	data []byte
}

// NewMemSource returns a source that serves data.
func NewMemSource(data []byte) *MemSource {
	return &MemSource{data: data}
}

// ReadAt implements io.ReaderAt.
func (m *MemSource) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(m.data).ReadAt(p, off)
}

// Size returns the length of the backing data.
func (m *MemSource) Size() int64 {
	return int64(len(m.data))
}
