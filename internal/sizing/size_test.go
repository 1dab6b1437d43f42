package sizing

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOverflow = errors.New("overflow")

func TestAddUint64(t *testing.T) {
	t.Parallel()

	sum, ok := AddUint64(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), sum)

	_, ok = AddUint64(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestToUint32(t *testing.T) {
	t.Parallel()

	v, err := ToUint32(42, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	_, err = ToUint32(-1, errOverflow)
	require.ErrorIs(t, err, errOverflow)

	_, err = ToUint32(math.MaxUint32+1, errOverflow)
	require.ErrorIs(t, err, errOverflow)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("x"), 16)

	got, err := ReadAllWithLimit(bytes.NewReader(data), 16, errOverflow)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = ReadAllWithLimit(bytes.NewReader(data), 15, errOverflow)
	require.ErrorIs(t, err, errOverflow)

	got, err = ReadAllWithLimit(bytes.NewReader(data), 0, errOverflow)
	require.NoError(t, err)
	assert.Len(t, got, 16)
}
