package split

import (
	"context"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialBytes(size, start int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(start + i)
	}
	return b
}

func writeSource(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func readDirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func assertFile(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got, path)
}

func TestSplit_Layout(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		opts      Options
		wantNames []string
		partDir   string
		partNames []string
	}{
		{
			name:      "copy",
			source:    "file",
			opts:      Options{ChunkSize: 30},
			wantNames: []string{"file", "file.00", "file.01", "file.02", "file.03"},
			partNames: []string{"file.00", "file.01", "file.02", "file.03"},
		},
		{
			name:      "in place",
			source:    "file",
			opts:      Options{ChunkSize: 30, InPlace: true},
			wantNames: []string{"file.00", "file.01", "file.02", "file.03"},
			partNames: []string{"file.00", "file.01", "file.02", "file.03"},
		},
		{
			name:      "in place with extension",
			source:    "file.bin",
			opts:      Options{ChunkSize: 30, InPlace: true},
			wantNames: []string{"file.bin.00", "file.bin.01", "file.bin.02", "file.bin.03"},
			partNames: []string{"file.bin.00", "file.bin.01", "file.bin.02", "file.bin.03"},
		},
		{
			name:      "archive copy",
			source:    "file",
			opts:      Options{ChunkSize: 30, Archive: true},
			wantNames: []string{"file", "file_split"},
			partDir:   "file_split",
			partNames: []string{"00", "01", "02", "03"},
		},
		{
			name:      "archive in place",
			source:    "file",
			opts:      Options{ChunkSize: 30, Archive: true, InPlace: true},
			wantNames: []string{"file_split"},
			partDir:   "file_split",
			partNames: []string{"00", "01", "02", "03"},
		},
		{
			name:      "archive in place with extension",
			source:    "file.bin",
			opts:      Options{ChunkSize: 30, Archive: true, InPlace: true},
			wantNames: []string{"file_split.bin"},
			partDir:   "file_split.bin",
			partNames: []string{"00", "01", "02", "03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := writeSource(t, tt.source, sequentialBytes(100, 0))
			dir := filepath.Dir(source)

			res := Split(context.Background(), source, tt.opts)
			require.True(t, res.OK, res.Description())
			require.NoError(t, res.Err)

			assert.Equal(t, tt.wantNames, readDirNames(t, dir))
			// flat parts sit next to the source, which wantNames covers
			partDir := filepath.Join(dir, tt.partDir)
			if tt.partDir != "" {
				assert.Equal(t, tt.partNames, readDirNames(t, partDir))
			}
			assert.Equal(t, partDir, res.Output)

			require.Len(t, res.Parts, 4)
			for i, name := range tt.partNames {
				assert.Equal(t, filepath.Join(partDir, name), res.Parts[i])
			}
			assertFile(t, res.Parts[0], sequentialBytes(30, 0))
			assertFile(t, res.Parts[1], sequentialBytes(30, 30))
			assertFile(t, res.Parts[2], sequentialBytes(30, 60))
			assertFile(t, res.Parts[3], sequentialBytes(10, 90))
		})
	}
}

func TestSplit_CopyLeavesSource(t *testing.T) {
	data := sequentialBytes(100, 0)
	source := writeSource(t, "file", data)

	res := Split(context.Background(), source, Options{ChunkSize: 30})
	require.True(t, res.OK)
	assertFile(t, source, data)
}

func TestSplit_Progress(t *testing.T) {
	for _, inPlace := range []bool{false, true} {
		source := writeSource(t, "file", sequentialBytes(100, 0))

		var last, calls int64
		res := Split(context.Background(), source, Options{
			ChunkSize:  30,
			InPlace:    inPlace,
			BufferSize: 8,
			Progress: func(done, total int64) {
				assert.Equal(t, int64(100), total)
				assert.GreaterOrEqual(t, done, last)
				last = done
				calls++
			},
		})
		require.True(t, res.OK)
		assert.Equal(t, int64(100), last)
		assert.Greater(t, calls, int64(4))
	}
}

func TestSplit_Failures(t *testing.T) {
	res := Split(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{ChunkSize: 30})
	assert.False(t, res.OK)
	assert.Error(t, res.Err)
	assert.Contains(t, res.Description(), "failed to split file")

	source := writeSource(t, "file", sequentialBytes(100, 0))
	res = Split(context.Background(), source, Options{ChunkSize: -1})
	assert.False(t, res.OK)

	large := writeSource(t, "large", sequentialBytes(101, 0))
	res = Split(context.Background(), large, Options{ChunkSize: 1})
	assert.False(t, res.OK, "101 parts do not fit two digits")
	assert.NoFileExists(t, large+".99")
}

func TestSplit_Cancelled(t *testing.T) {
	source := writeSource(t, "file", sequentialBytes(100, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Split(ctx, source, Options{ChunkSize: 30, InPlace: true})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assertFile(t, source, sequentialBytes(100, 0))
}

func TestSplitMerge_Identity(t *testing.T) {
	const chunk = 30
	sizes := []int{0, chunk - 1, chunk, chunk + 1, 2 * chunk, 1 + rand.New(rand.NewSource(7)).Intn(20*chunk)}

	for _, size := range sizes {
		for _, opts := range []Options{
			{ChunkSize: chunk},
			{ChunkSize: chunk, InPlace: true},
			{ChunkSize: chunk, Archive: true},
			{ChunkSize: chunk, Archive: true, InPlace: true},
		} {
			data := make([]byte, size)
			rand.New(rand.NewSource(int64(size))).Read(data)
			source := writeSource(t, "rawnand.bin", data)

			res := Split(context.Background(), source, opts)
			require.True(t, res.OK, res.Description())
			wantParts := max(1, (size+chunk-1)/chunk)
			assert.Len(t, res.Parts, wantParts, "size %d", size)

			merged := Merge(context.Background(), res.Parts[0], Options{InPlace: opts.InPlace})
			require.True(t, merged.OK, merged.Description())
			assertFile(t, merged.Output, data)
		}
	}
}

func TestMerge_Flat(t *testing.T) {
	source := writeSource(t, "file", sequentialBytes(100, 0))
	res := Split(context.Background(), source, Options{ChunkSize: 30, InPlace: true})
	require.True(t, res.OK)

	merged := Merge(context.Background(), filepath.Join(filepath.Dir(source), "file.00"), Options{})
	require.True(t, merged.OK, merged.Description())
	assert.Equal(t, source, merged.Output)
	assert.Len(t, merged.Parts, 4)
	assertFile(t, source, sequentialBytes(100, 0))

	// copy mode keeps the parts
	assert.FileExists(t, source+".03")
}

func TestMerge_ArchiveInPlace(t *testing.T) {
	source := writeSource(t, "file.bin", sequentialBytes(100, 0))
	dir := filepath.Dir(source)
	res := Split(context.Background(), source, Options{ChunkSize: 30, Archive: true, InPlace: true})
	require.True(t, res.OK)

	merged := Merge(context.Background(), filepath.Join(dir, "file_split.bin", "00"), Options{InPlace: true})
	require.True(t, merged.OK, merged.Description())
	assert.Equal(t, filepath.Join(dir, "file_split_merged.bin"), merged.Output)
	assert.Equal(t, []string{"file_split_merged.bin"}, readDirNames(t, dir))
	assertFile(t, merged.Output, sequentialBytes(100, 0))
}

func TestMerge_ArchiveKeepsForeignFiles(t *testing.T) {
	source := writeSource(t, "file", sequentialBytes(100, 0))
	dir := filepath.Dir(source)
	res := Split(context.Background(), source, Options{ChunkSize: 30, Archive: true, InPlace: true})
	require.True(t, res.OK)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file_split", "notes.txt"), []byte("hi"), 0o644))

	merged := Merge(context.Background(), filepath.Join(dir, "file_split", "00"), Options{InPlace: true})
	require.True(t, merged.OK, merged.Description())
	assert.Equal(t, []string{"notes.txt"}, readDirNames(t, filepath.Join(dir, "file_split")))
	assertFile(t, filepath.Join(dir, "file_split_merged"), sequentialBytes(100, 0))
}

func TestMerge_RejectsNonFirstPart(t *testing.T) {
	source := writeSource(t, "file", sequentialBytes(100, 0))
	require.True(t, Split(context.Background(), source, Options{ChunkSize: 30}).OK)

	for _, p := range []string{source + ".01", source} {
		res := Merge(context.Background(), p, Options{})
		assert.False(t, res.OK)
		assert.Contains(t, res.Description(), "first part of a split")
	}
}

func TestMerge_NoParts(t *testing.T) {
	t.Run("archive", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "file_split.bin")
		require.NoError(t, os.Mkdir(dir, 0o755))

		res := Merge(context.Background(), filepath.Join(dir, "00"), Options{})
		assert.False(t, res.OK)
		assert.ErrorIs(t, res.Err, fs.ErrNotExist)
		assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "file_split_merged.bin"))
	})

	t.Run("flat", func(t *testing.T) {
		dir := t.TempDir()
		res := Merge(context.Background(), filepath.Join(dir, "file.00"), Options{})
		assert.False(t, res.OK)
		assert.Error(t, res.Err)
		assert.NoFileExists(t, filepath.Join(dir, "file"))
	})
}

func TestPartPath(t *testing.T) {
	tests := []struct {
		source  string
		archive bool
		index   int
		want    string
	}{
		{"/d/rawnand.bin", false, 0, "/d/rawnand.bin.00"},
		{"/d/rawnand.bin", false, 12, "/d/rawnand.bin.12"},
		{"/d/rawnand.bin", true, 3, "/d/rawnand_split.bin/03"},
		{"/d/rawnand", true, 0, "/d/rawnand_split/00"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.FromSlash(tt.want), PartPath(filepath.FromSlash(tt.source), tt.archive, tt.index))
	}
}

func TestMergedPath(t *testing.T) {
	assert.Equal(t, filepath.FromSlash("/d/rawnand.bin"), MergedPath(filepath.FromSlash("/d/rawnand.bin.00")))
	assert.Equal(t, filepath.FromSlash("/d/rawnand_split_merged.bin"), MergedPath(filepath.FromSlash("/d/rawnand_split.bin/00")))
	assert.Equal(t, filepath.FromSlash("/d/rawnand_split_merged"), MergedPath(filepath.FromSlash("/d/rawnand_split/00")))
}

func TestDefaultChunkSize(t *testing.T) {
	assert.Equal(t, int64(0xFFFF0000), DefaultChunkSize(true))
	assert.Equal(t, int64(0x80000000), DefaultChunkSize(false))
}
