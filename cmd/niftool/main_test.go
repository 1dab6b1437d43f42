package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/meigma/nif"
	"github.com/meigma/nif/internal/testutil"
	"github.com/meigma/nif/node"
)

func sceneBytes(t *testing.T) []byte {
	t.Helper()
	c := nif.New(node.Registry())
	root := node.NewNiNode()
	root.Name = node.StringRef(c.AddString("Scene Root"))
	c.AddBlock(root)
	c.AddBlock(node.NewBSXFlags(node.StringRef(c.AddString("BSX")), 2))

	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func runTool(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_PackListInspectCopy(t *testing.T) {
	t.Parallel()

	scene := sceneBytes(t)
	src := t.TempDir()
	testutil.WriteFiles(t, src, map[string][]byte{"meshes/rock.nif": scene})

	work := t.TempDir()
	arc := filepath.Join(work, "meshes.npak")
	code, _, stderr := runTool(t, "pack", "--compression", "lz4", src, arc)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runTool(t, "list", arc)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "meshes/rock.nif")
	assert.Contains(t, stdout, "1 entries")

	gameDir := t.TempDir()
	code, stdout, stderr = runTool(t, "--game-dir", gameDir, "--archive", arc, "inspect", `meshes\rock.nif`)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "20.2.0.7")
	assert.Contains(t, stdout, "NiNode")
	assert.Contains(t, stdout, "BSXFlags")
	assert.Contains(t, stdout, fmt.Sprintf("%x", blake3.Sum256(scene)))

	out := filepath.Join(work, "copy", "rock.nif")
	code, _, stderr = runTool(t, "-d", gameDir, "-a", arc, "copy", "meshes/rock.nif", out)
	require.Equal(t, 0, code, stderr)
	copied, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, scene, copied)
}

func TestRun_ConfigFile(t *testing.T) {
	t.Parallel()

	gameDir := t.TempDir()
	testutil.WriteFiles(t, gameDir, map[string][]byte{"a.nif": sceneBytes(t)})
	cfgPath := filepath.Join(t.TempDir(), "niftool.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("game_dir: "+gameDir+"\nlog_level: warn\n"), 0o600))

	code, stdout, stderr := runTool(t, "--config", cfgPath, "inspect", "a.nif")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "blocks:")
}

func TestRun_ExitCodes(t *testing.T) {
	t.Parallel()

	gameDir := t.TempDir()
	testutil.WriteFiles(t, gameDir, map[string][]byte{
		"corrupt.nif": testutil.Container{
			Blocks: []testutil.RawBlock{{Type: node.TypeNiNode, Data: []byte{1}}},
		}.Bytes(t),
		"junk.nif": []byte("junk"),
	})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, exitUsage},
		{"unknown command", []string{"explode"}, exitUsage},
		{"bad flag", []string{"--nope"}, exitUsage},
		{"help", []string{"--help"}, 0},
		{"missing args", []string{"copy", "a.nif"}, exitUsage},
		{"bad compression", []string{"pack", "--compression", "rar", "a", "b"}, exitUsage},
		{"bad log level", []string{"--log-level", "loud", "inspect", "a.nif"}, exitUsage},
		{"not found", []string{"-d", gameDir, "inspect", "missing.nif"}, 404},
		{"header parse", []string{"-d", gameDir, "inspect", "junk.nif"}, 510},
		{"block decode", []string{"-d", gameDir, "inspect", "corrupt.nif"}, 511},
		{"missing archive", []string{"list", filepath.Join(gameDir, "none.npak")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, _, _ := runTool(t, tt.args...)
			assert.Equal(t, tt.want, code)
		})
	}
}
