package nif

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/nif/internal/testutil"
	"github.com/meigma/nif/stream"
)

func TestVersionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20.2.0.7", VersionString(Version20207))

	v, err := ParseVersion("20.2.0.7")
	require.NoError(t, err)
	assert.Equal(t, Version20207, v)

	for _, bad := range []string{"", "20.2.0", "20.2.0.256", "a.b.c.d"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestHeader_AddStringDeduplicates(t *testing.T) {
	t.Parallel()

	h := NewHeader()
	assert.Equal(t, 0, h.AddString("Scene Root"))
	assert.Equal(t, 1, h.AddString("BSX"))
	assert.Equal(t, 0, h.AddString("Scene Root"))
	assert.Equal(t, []string{"Scene Root", "BSX"}, h.Strings())

	s, ok := h.String(1)
	require.True(t, ok)
	assert.Equal(t, "BSX", s)

	_, ok = h.String(2)
	assert.False(t, ok)
	_, ok = h.String(-1)
	assert.False(t, ok)
}

func TestHeader_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, bs := range []uint32{34, 83, 100, 130, 155} {
		h := NewHeader()
		h.BSVersion = bs
		h.Creator = "exporter"
		h.ProcessScript = "process"
		h.ExportScript = "export"
		h.MaxFilepath = "C:\\meshes"
		h.AddString("Scene Root")
		h.AddString("Shape")
		require.NoError(t, h.addBlock("NiNode", 10))
		require.NoError(t, h.addBlock("NiTriShape", 20))
		require.NoError(t, h.addBlock("NiNode", 30))

		var buf bytes.Buffer
		w := stream.NewWriter(&buf)
		require.NoError(t, h.Write(w))

		got := NewHeader()
		r := stream.NewReader(buf.Bytes())
		require.NoError(t, got.Read(r), "bs version %d", bs)
		assert.Equal(t, 0, r.Len())

		assert.Equal(t, h.Version, got.Version)
		assert.Equal(t, h.UserVersion, got.UserVersion)
		assert.Equal(t, bs, got.BSVersion)
		assert.Equal(t, "exporter", got.Creator)
		assert.Equal(t, "export", got.ExportScript)
		if bs < 131 {
			assert.Equal(t, "process", got.ProcessScript)
		} else {
			assert.Empty(t, got.ProcessScript)
		}
		if bs >= 103 {
			assert.Equal(t, "C:\\meshes", got.MaxFilepath)
		} else {
			assert.Empty(t, got.MaxFilepath)
		}
		assert.Equal(t, []string{"NiNode", "NiTriShape"}, got.BlockTypes())
		assert.Equal(t, 3, got.NumBlocks())
		assert.Equal(t, "NiNode", got.BlockType(2))
		assert.Equal(t, uint32(20), got.BlockSize(1))
		assert.Equal(t, []string{"Scene Root", "Shape"}, got.Strings())
	}
}

func TestHeader_ReadHandBuilt(t *testing.T) {
	t.Parallel()

	data := testutil.Container{
		Creator: "tool",
		Strings: []string{"a", "bb"},
		Blocks: []testutil.RawBlock{
			{Type: "NiNode", Data: make([]byte, 4)},
			{Type: "Unknown", Data: make([]byte, 2)},
		},
	}.Bytes(t)

	h := NewHeader()
	r := stream.NewReader(data)
	require.NoError(t, h.Read(r))
	assert.Equal(t, Version20207, h.Version)
	assert.Equal(t, DefaultUserVersion, h.UserVersion)
	assert.Equal(t, DefaultBSVersion, h.BSVersion)
	assert.Equal(t, "tool", h.Creator)
	assert.Equal(t, 2, h.NumBlocks())
	assert.Equal(t, "Unknown", h.BlockType(1))
	assert.Equal(t, uint32(4), h.BlockSize(0))

	// Block payloads and the trailer follow the header.
	assert.Equal(t, 4+2+8, r.Len())
}

func TestHeader_ReadErrors(t *testing.T) {
	t.Parallel()

	valid := testutil.Container{Blocks: []testutil.RawBlock{{Type: "NiNode", Data: []byte{1}}}}.Bytes(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a header", []byte("PK\x03\x04 zip file\n")},
		{"no newline", []byte("Gamebryo File Format, Version 20.2.0.7")},
		{"old version", testutil.Container{Version: 0x14000004, UserVersion: 0}.Bytes(t)},
		{"truncated", valid[:60]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewHeader().Read(stream.NewReader(tt.data))
			require.Error(t, err)
		})
	}
}

func TestHeader_ReadRejectsTypeIndexOutOfRange(t *testing.T) {
	t.Parallel()

	data := testutil.Container{Blocks: []testutil.RawBlock{{Type: "NiNode", Data: []byte{1}}}}.Bytes(t)

	// The single type index sits after the one type-name entry.
	typeName := []byte("\x06\x00\x00\x00NiNode")
	i := bytes.Index(data, typeName)
	require.Positive(t, i)
	idx := i + len(typeName)
	data[idx] = 5

	err := NewHeader().Read(stream.NewReader(data))
	require.ErrorIs(t, err, stream.ErrMalformed)
}

func TestHeader_ReadRejectsBigEndian(t *testing.T) {
	t.Parallel()

	data := testutil.Container{}.Bytes(t)
	line := bytes.IndexByte(data, '\n')
	require.Positive(t, line)
	data[line+1+4] = 0

	err := NewHeader().Read(stream.NewReader(data))
	require.ErrorIs(t, err, errUnsupportedVersion)
}

func TestHeader_ReadRejectsOversizedBlockCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		count uint32
		want  error
	}{
		{"above int32", 0x80000000, stream.ErrMalformed},
		{"all bits set", 0xFFFFFFFF, stream.ErrMalformed},
		{"more than the data holds", 1000, stream.ErrShortBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := testutil.Container{}.Bytes(t)
			line := bytes.IndexByte(data, '\n')
			require.Positive(t, line)
			// Version, endian byte and user version precede the block count.
			binary.LittleEndian.PutUint32(data[line+1+9:], tt.count)

			err := NewHeader().Read(stream.NewReader(data))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHeader_WriteRejectsOldVersion(t *testing.T) {
	t.Parallel()

	h := NewHeader()
	h.Version = 0x0A000100
	err := h.Write(stream.NewWriter(&bytes.Buffer{}))
	require.ErrorIs(t, err, errUnsupportedVersion)
}
