package testutil

import (
	"bytes"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/nif/stream"
)

// RawBlock is one block of a hand-built container.
type RawBlock struct {
	Type string
	Data []byte
}

// Container describes a container to encode byte by byte.
//
// A zero Version selects 20.2.0.7 with user version 12 and BS version 83.
// Sizes, when set, replace the declared size of the block at the same index.
type Container struct {
	Version     uint32
	UserVersion uint32
	BSVersion   uint32
	Creator     string
	Strings     []string
	Blocks      []RawBlock
	Sizes       map[int]uint32
	NoTrailer   bool
}

// Bytes encodes c the way a conforming writer lays it out.
func (c Container) Bytes(tb testing.TB) []byte {
	tb.Helper()

	if c.Version == 0 {
		c.Version, c.UserVersion, c.BSVersion = 0x14020007, 12, 83
	}

	var types []string
	indices := make([]uint16, len(c.Blocks))
	for i, b := range c.Blocks {
		slot := slices.Index(types, b.Type)
		if slot < 0 {
			slot = len(types)
			types = append(types, b.Type)
		}
		indices[i] = uint16(slot) //nolint:gosec // test data is small
	}

	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	w.Line(fmt.Sprintf("Gamebryo File Format, Version %d.%d.%d.%d",
		c.Version>>24, (c.Version>>16)&0xFF, (c.Version>>8)&0xFF, c.Version&0xFF))
	w.U32(c.Version)
	w.U8(1)
	w.U32(c.UserVersion)
	w.Count(len(c.Blocks))
	if c.UserVersion >= 3 {
		w.U32(c.BSVersion)
		w.ExportString(c.Creator)
		if c.BSVersion > 130 {
			w.U32(0)
		}
		if c.BSVersion < 131 {
			w.ExportString("")
		}
		w.ExportString("")
		if c.BSVersion >= 103 {
			w.ExportString("")
		}
	}

	w.U16(uint16(len(types))) //nolint:gosec // test data is small
	for _, t := range types {
		w.SizedString(t)
	}
	for _, idx := range indices {
		w.U16(idx)
	}
	for i, b := range c.Blocks {
		size, ok := c.Sizes[i]
		if !ok {
			size = uint32(len(b.Data)) //nolint:gosec // test data is small
		}
		w.U32(size)
	}

	var maxLen int
	for _, s := range c.Strings {
		maxLen = max(maxLen, len(s))
	}
	w.Count(len(c.Strings))
	w.U32(uint32(maxLen)) //nolint:gosec // test data is small
	for _, s := range c.Strings {
		w.SizedString(s)
	}
	w.Count(0)

	for _, b := range c.Blocks {
		w.Bytes(b.Data)
	}
	if !c.NoTrailer {
		w.U32(1)
		w.U32(0)
	}
	require.NoError(tb, w.Err())
	return buf.Bytes()
}

// Payload encodes fn's writes into a block payload.
func Payload(tb testing.TB, fn func(w *stream.Writer)) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := stream.NewWriter(&buf)
	fn(w)
	require.NoError(tb, w.Err())
	return buf.Bytes()
}
