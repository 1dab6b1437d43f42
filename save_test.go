package nif

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTo_TombstoneWithoutBytes(t *testing.T) {
	t.Parallel()

	c := New(nil)
	c.AddBlock(&fixedObject{name: "NiNode", data: []byte{1, 2, 3, 4}})
	c.blocks = append(c.blocks, Block{Type: "NiLost"})

	_, err := c.WriteTo(&bytes.Buffer{})
	require.ErrorIs(t, err, ErrWrite)

	var nerr *Error
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, 1, nerr.Block)
	assert.Equal(t, "NiLost", nerr.Type)
}

func TestWriteTo_RecomputesSizes(t *testing.T) {
	t.Parallel()

	obj := &fixedObject{name: "NiNode", data: []byte{1, 2}}
	c := New(nil)
	c.AddBlock(obj)
	require.Equal(t, uint32(2), c.Header().BlockSize(0))

	obj.data = []byte{1, 2, 3, 4, 5}
	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), c.Header().BlockSize(0))

	reg, err := NewRegistryBuilder().Register("NiNode", fixedFactory("NiNode", 5)).Build()
	require.NoError(t, err)
	loaded := New(reg)
	require.NoError(t, loaded.Decode("a.nif", buf.Bytes()))
	got, ok := loaded.Object(0).(*fixedObject)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got.data)
}
