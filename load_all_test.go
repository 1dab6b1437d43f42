package nif_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/nif"
	"github.com/meigma/nif/internal/testutil"
	"github.com/meigma/nif/node"
)

func TestLoadAll(t *testing.T) {
	t.Parallel()

	scene := sceneBytes(t)
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"a.nif": scene,
		"b.nif": scene,
		"c.nif": scene,
	})
	res := nif.NewResolver(dir)

	containers, err := nif.LoadAll(context.Background(), node.Registry(), res,
		[]string{"a.nif", "b.nif", "c.nif"}, nif.WithConcurrency(2))
	require.NoError(t, err)
	require.Len(t, containers, 3)
	for _, c := range containers {
		assert.Equal(t, nif.StateLoaded, c.State())
		assert.Equal(t, 3, c.Len())
	}
}

func TestLoadAll_FirstFailureWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"a.nif": sceneBytes(t)})

	var rec testutil.LogRecorder
	containers, err := nif.LoadAll(context.Background(), node.Registry(), nif.NewResolver(dir),
		[]string{"a.nif", "missing.nif"},
		nif.WithContainerOptions(nif.WithLogger(rec.NewLogger())),
	)
	require.ErrorIs(t, err, nif.ErrSourceNotFound)
	assert.Nil(t, containers)
}

func TestLoadAll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := nif.LoadAll(ctx, node.Registry(), nif.NewResolver(t.TempDir()), []string{"a.nif"})
	require.ErrorIs(t, err, context.Canceled)
}
