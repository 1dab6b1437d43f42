//go:build unix

package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestOpenShared_ExclusiveLockIsReported(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mesh.nif")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	holder, err := os.Open(path)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_EX|unix.LOCK_NB))

	_, err = OpenShared(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_UN))
	f, err := OpenShared(path)
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}

func TestOpenShared_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := OpenShared(filepath.Join(t.TempDir(), "missing.nif"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
