package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-nxnand/internal/nandgen"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// hostTree writes payload/a.bin and payload/sub/b.txt below a temp dir
func hostTree(t *testing.T) (string, map[string][]byte) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "payload")
	files := map[string][]byte{
		"a.bin":     randomBytes(t, 10000),
		"sub/b.txt": []byte("hello from the host\n"),
	}
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, data, 0o644))
	}
	return root, files
}

func mountUser(t *testing.T, readOnly bool) (*NandService, *Volume) {
	t.Helper()
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Keys: keys}), keys)
	vol, err := s.Mount("USER", readOnly)
	require.NoError(t, err)
	t.Cleanup(func() { vol.Close() })
	return s, vol
}

func TestVolume_RootHidesLabel(t *testing.T) {
	_, vol := mountUser(t, true)

	assert.True(t, vol.ReadOnly())
	assert.Equal(t, uint16(512), vol.BootSector().BytesPerSector)
	entries, err := vol.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVolume_InjectExtract(t *testing.T) {
	_, vol := mountUser(t, false)
	ctx := context.Background()

	freeBefore, err := vol.Free()
	require.NoError(t, err)

	require.NoError(t, vol.Mkdir("/Contents"))
	src, files := hostTree(t)

	calls := 0
	prog, err := vol.Inject(ctx, []string{src}, "/Contents", false, func(*CopyProgress) { calls++ })
	require.NoError(t, err)
	assert.Greater(t, calls, 0)
	assert.Equal(t, 2, prog.TotalFiles)
	assert.Equal(t, 2, prog.TotalFilesCopied)
	assert.Equal(t, 2, prog.TotalDirectories)
	assert.Equal(t, 2, prog.TotalDirectoriesCopied)
	assert.Equal(t, int64(10000+len(files["sub/b.txt"])), prog.TotalBytes)
	assert.Equal(t, prog.TotalBytes, prog.TotalBytesCopied)

	freeAfter, err := vol.Free()
	require.NoError(t, err)
	assert.Less(t, freeAfter, freeBefore)

	entries, err := vol.ReadDir("/Contents/payload")
	require.NoError(t, err)
	names := map[string]FileEntry{}
	for _, e := range entries {
		names[e.Name] = e
	}
	require.Contains(t, names, "a.bin")
	require.Contains(t, names, "sub")
	assert.Equal(t, int64(10000), names["a.bin"].Size)
	assert.True(t, names["sub"].IsDir)

	e, err := vol.Stat("/contents/PAYLOAD/sub/B.TXT")
	require.NoError(t, err)
	assert.Equal(t, "/Contents/payload/sub/b.txt", e.Path)

	_, err = vol.Stat("/Contents/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var walked []string
	require.NoError(t, vol.Walk("/Contents", func(e FileEntry) error {
		walked = append(walked, e.Path)
		return nil
	}))
	// directories are created before any file is copied
	assert.Equal(t, []string{
		"/Contents",
		"/Contents/payload",
		"/Contents/payload/sub",
		"/Contents/payload/sub/b.txt",
		"/Contents/payload/a.bin",
	}, walked)

	dst := t.TempDir()
	out, err := vol.Extract(ctx, "/Contents/payload", dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalFilesCopied)
	assert.Equal(t, prog.TotalBytes, out.TotalBytesCopied)
	for rel, want := range files {
		got, err := os.ReadFile(filepath.Join(dst, "payload", filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.True(t, bytes.Equal(want, got), rel)
	}
}

func TestVolume_PersistsAcrossMounts(t *testing.T) {
	s, vol := mountUser(t, false)
	src, files := hostTree(t)
	_, err := vol.Inject(context.Background(), []string{filepath.Join(src, "sub", "b.txt")}, "/", false, nil)
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	again, err := s.Mount("user", true)
	require.NoError(t, err)
	dst := filepath.Join(t.TempDir(), "copy.txt")
	_, err = again.Extract(context.Background(), "/b.txt", dst, nil)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, files["sub/b.txt"], got)
}

func TestVolume_ReadOnly(t *testing.T) {
	_, vol := mountUser(t, true)
	src, _ := hostTree(t)

	_, err := vol.Inject(context.Background(), []string{src}, "/", false, nil)
	assert.ErrorIs(t, err, types.ErrReadOnly)
	assert.ErrorIs(t, vol.Mkdir("/x"), types.ErrReadOnly)
}

func TestVolume_InjectConflict(t *testing.T) {
	_, vol := mountUser(t, false)
	ctx := context.Background()
	src, _ := hostTree(t)

	_, err := vol.Inject(ctx, []string{src}, "/", false, nil)
	require.NoError(t, err)

	_, err = vol.Inject(ctx, []string{src}, "/", false, nil)
	assert.ErrorIs(t, err, types.ErrExists)

	// replace a.bin with shorter content
	replacement := []byte("short")
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.bin"), replacement, 0o644))
	_, err = vol.Inject(ctx, []string{src}, "/", true, nil)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "a.bin")
	_, err = vol.Extract(ctx, "/payload/a.bin", dst, nil)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestVolume_InjectMatchesStoredCase(t *testing.T) {
	_, vol := mountUser(t, false)
	ctx := context.Background()
	require.NoError(t, vol.Mkdir("/Contents"))
	src, files := hostTree(t)

	_, err := vol.Inject(ctx, []string{src}, "/Contents", false, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		dest string
	}{
		{"lower case parent", "/contents"},
		{"upper case parent", "/CONTENTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vol.Inject(ctx, []string{src}, tt.dest, false, nil)
			assert.ErrorIs(t, err, types.ErrExists)

			e, err := vol.Stat(tt.dest + "/payload/a.bin")
			require.NoError(t, err)
			assert.Equal(t, "/Contents/payload/a.bin", e.Path)
			assert.Equal(t, int64(len(files["a.bin"])), e.Size)
		})
	}

	// overwrite through a mis-cased path replaces the stored entries in place
	replacement := []byte("short")
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.bin"), replacement, 0o644))
	require.NoError(t, os.Rename(src, filepath.Join(filepath.Dir(src), "PAYLOAD")))
	_, err = vol.Inject(ctx, []string{filepath.Join(filepath.Dir(src), "PAYLOAD")}, "/contents", true, nil)
	require.NoError(t, err)

	root, err := vol.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, "Contents", root[0].Name)

	entries, err := vol.ReadDir("/CONTENTS")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "payload", entries[0].Name)

	e, err := vol.Stat("/Contents/payload/a.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(replacement)), e.Size)
}

func TestVolume_ReadDirMissing(t *testing.T) {
	_, vol := mountUser(t, true)

	_, err := vol.ReadDir("/nowhere/deeper")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestVolume_InjectIntoFile(t *testing.T) {
	_, vol := mountUser(t, false)
	ctx := context.Background()
	src, _ := hostTree(t)
	_, err := vol.Inject(ctx, []string{filepath.Join(src, "a.bin")}, "/", false, nil)
	require.NoError(t, err)

	_, err = vol.Inject(ctx, []string{src}, "/a.bin", false, nil)
	assert.ErrorContains(t, err, "not a directory")
}

func TestVolume_InjectNoSpace(t *testing.T) {
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Keys: keys}), keys)
	vol, err := s.Mount("SAFE", false)
	require.NoError(t, err)

	big := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(big, make([]byte, 3<<20), 0o644))

	_, err = vol.Inject(context.Background(), []string{big}, "/", false, nil)
	assert.ErrorIs(t, err, types.ErrNoSpace)

	_, err = vol.Stat("/big.bin")
	assert.ErrorIs(t, err, fs.ErrNotExist, "nothing is written when the copy does not fit")
}

func TestVolume_ExtractCancelled(t *testing.T) {
	_, vol := mountUser(t, false)
	src, _ := hostTree(t)
	_, err := vol.Inject(context.Background(), []string{src}, "/", false, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = vol.Extract(ctx, "/payload", t.TempDir(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
