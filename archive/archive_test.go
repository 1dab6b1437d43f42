package archive

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/nif/internal/testutil"
)

// createTestArchive packs files into an in-memory archive.
func createTestArchive(t *testing.T, files map[string][]byte, opts ...CreateOption) (*Archive, []byte) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, files)

	var buf bytes.Buffer
	require.NoError(t, Create(context.Background(), dir, &buf, opts...))

	a, err := New(testutil.NewMemSource(buf.Bytes()))
	require.NoError(t, err)
	return a, buf.Bytes()
}

func TestCreate_RoundTrip(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"meshes/clutter/bowl.nif":  bytes.Repeat([]byte("bowl"), 512),
		"meshes/clutter/plate.nif": bytes.Repeat([]byte("plate"), 256),
		"textures/plate.dds":       []byte("tiny"),
		"empty.txt":                {},
	}

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			a, _ := createTestArchive(t, files, CreateWithCompression(c))
			assert.Equal(t, len(files), a.Len())

			for name, want := range files {
				got, err := a.ReadFile(name)
				require.NoError(t, err, name)
				assert.Equal(t, want, got, name)
			}

			entry, ok := a.Entry("meshes/clutter/bowl.nif")
			require.True(t, ok)
			assert.Equal(t, c, entry.Compression)
			assert.Equal(t, uint64(2048), entry.OriginalSize)

			// Incompressible content is stored raw whatever the setting.
			small, ok := a.Entry("textures/plate.dds")
			require.True(t, ok)
			assert.Equal(t, CompressionNone, small.Compression)
		})
	}
}

func TestArchive_EntriesSortedByName(t *testing.T) {
	t.Parallel()

	a, _ := createTestArchive(t, map[string][]byte{
		"b.nif":     []byte("b"),
		"A.nif":     []byte("a"),
		"dir/c.nif": []byte("c"),
	})

	var names []string
	for e := range a.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a.nif", "b.nif", "dir/c.nif"}, names)
}

func TestArchive_LookupIsCaseAndSeparatorInsensitive(t *testing.T) {
	t.Parallel()

	a, _ := createTestArchive(t, map[string][]byte{
		"meshes/clutter/bowl.nif": []byte("bowl"),
	})

	assert.True(t, a.Exists(`Meshes\Clutter\Bowl.NIF`))
	assert.True(t, a.Exists("/meshes//clutter/bowl.nif"))
	assert.False(t, a.Exists("meshes/clutter/cup.nif"))

	got, err := a.ReadFile(`MESHES\clutter\bowl.nif`)
	require.NoError(t, err)
	assert.Equal(t, []byte("bowl"), got)
}

func TestArchive_ReadFileMissing(t *testing.T) {
	t.Parallel()

	a, _ := createTestArchive(t, map[string][]byte{"a.nif": []byte("a")})

	_, err := a.ReadFile("missing.nif")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_DigestMismatch(t *testing.T) {
	t.Parallel()

	_, data := createTestArchive(t, map[string][]byte{"a.nif": []byte("payload")})

	corrupt := bytes.Clone(data)
	corrupt[0] ^= 0xFF
	a, err := New(testutil.NewMemSource(corrupt))
	require.NoError(t, err)

	_, err = a.ReadFile("a.nif")
	require.ErrorIs(t, err, ErrDigestMismatch)
}

func TestArchive_CorruptCompressedPayload(t *testing.T) {
	t.Parallel()

	_, data := createTestArchive(t, map[string][]byte{
		"a.nif": bytes.Repeat([]byte("abcd"), 1024),
	}, CreateWithCompression(CompressionZstd))

	corrupt := bytes.Clone(data)
	for i := range 16 {
		corrupt[i] = 0
	}
	a, err := New(testutil.NewMemSource(corrupt))
	require.NoError(t, err)

	_, err = a.ReadFile("a.nif")
	require.ErrorIs(t, err, ErrDecompression)
}

func TestNew_RejectsNonArchives(t *testing.T) {
	t.Parallel()

	_, err := New(testutil.NewMemSource([]byte("short")))
	require.ErrorIs(t, err, ErrNotArchive)

	_, err = New(testutil.NewMemSource([]byte("Gamebryo File Format, Version 20.2.0.7\n")))
	require.ErrorIs(t, err, ErrNotArchive)

	bogus := append(make([]byte, 16), 0xFF, 0xFF, 0, 0, 'N', 'P', 'A', 'K')
	_, err = New(testutil.NewMemSource(bogus))
	require.ErrorIs(t, err, ErrCorruptIndex)
}

func TestCreate_SkipCompression(t *testing.T) {
	t.Parallel()

	content := bytes.Repeat([]byte("z"), 4096)
	a, _ := createTestArchive(t, map[string][]byte{
		"sound/a.xwm":  content,
		"meshes/a.nif": content,
	},
		CreateWithCompression(CompressionZstd),
		CreateWithSkipCompression(DefaultSkipCompression(0)),
	)

	xwm, ok := a.Entry("sound/a.xwm")
	require.True(t, ok)
	assert.Equal(t, CompressionNone, xwm.Compression)

	nif, ok := a.Entry("meshes/a.nif")
	require.True(t, ok)
	assert.Equal(t, CompressionZstd, nif.Compression)
}

func TestCreate_MaxFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"a": []byte("a"),
		"b": []byte("b"),
		"c": []byte("c"),
	})

	err := Create(context.Background(), dir, &bytes.Buffer{}, CreateWithMaxFiles(2))
	require.ErrorIs(t, err, ErrTooManyFiles)
}

func TestCreate_DuplicateNormalizedNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"Mesh.nif": []byte("a"),
		"mesh.nif": []byte("b"),
	})
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	if len(entries) < 2 {
		t.Skip("case-insensitive filesystem")
	}

	err = Create(context.Background(), dir, &bytes.Buffer{})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreate_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"a.nif": []byte("a")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Create(ctx, dir, &bytes.Buffer{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"meshes/a.nif": []byte("loose")})

	path := filepath.Join(t.TempDir(), "data.npak")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Create(context.Background(), dir, f, CreateWithCompression(CompressionLZ4)))
	require.NoError(t, f.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.ReadFile("meshes/a.nif")
	require.NoError(t, err)
	assert.Equal(t, []byte("loose"), got)
}

func TestArchive_ConcurrentReadsOwnTheirBuffers(t *testing.T) {
	t.Parallel()

	want := bytes.Repeat([]byte("shared"), 1024)
	a, _ := createTestArchive(t, map[string][]byte{"a.nif": want}, CreateWithCompression(CompressionZstd))

	const readers = 8
	results := make([][]byte, readers)
	var wg sync.WaitGroup
	for i := range readers {
		wg.Go(func() {
			got, err := a.ReadFile("a.nif")
			assert.NoError(t, err)
			results[i] = got
		})
	}
	wg.Wait()

	results[0][0] = 'X'
	for i := 1; i < readers; i++ {
		assert.Equal(t, want, results[i])
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"meshes/a.nif", "meshes/a.nif"},
		{`Meshes\Clutter\A.NIF`, "meshes/clutter/a.nif"},
		{"/meshes//a.nif/", "meshes/a.nif"},
		{"./meshes/./a.nif", "meshes/a.nif"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}
