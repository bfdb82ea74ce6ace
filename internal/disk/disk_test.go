package disk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createSplitDump writes count parts of partSize bytes, part i filled with byte i
func createSplitDump(t *testing.T, count, partSize int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < count; i++ {
		name := filepath.Join(dir, "rawnand.bin."+twoDigits(i))
		require.NoError(t, os.WriteFile(name, bytes.Repeat([]byte{byte(i)}, partSize), 0o644))
	}
	return filepath.Join(dir, "rawnand.bin.00")
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}

func createCombinedDump(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rawnand.bin")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpen_Combined(t *testing.T) {
	path := createCombinedDump(t, 64)

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, KindCombined, d.Kind())
	assert.Equal(t, int64(64), d.Size())
	require.Len(t, d.Segments(), 1)
	assert.Equal(t, path, d.Segments()[0].Path)
}

func TestDisk_ReadBytes_Combined(t *testing.T) {
	d, err := Open(createCombinedDump(t, 64))
	require.NoError(t, err)
	defer d.Close()

	tests := []struct {
		name   string
		offset int64
		length int
		want   []byte
	}{
		{"start", 0, 4, []byte{0, 1, 2, 3}},
		{"middle", 10, 3, []byte{10, 11, 12}},
		{"truncated at end", 62, 10, []byte{62, 63}},
		{"entirely past end", 64, 10, []byte{}},
		{"far past end", 1000, 10, []byte{}},
		{"zero length", 5, 0, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ReadBytes(tt.offset, tt.length)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisk_LazyUpgrade(t *testing.T) {
	d, err := Open(createCombinedDump(t, 32))
	require.NoError(t, err)
	defer d.Close()

	f := d.segments[0].file
	assert.Equal(t, stateClosed, f.state)

	_, err = d.ReadBytes(0, 4)
	require.NoError(t, err)
	assert.Equal(t, stateReadOnly, f.state)

	n, err := d.WriteBytes(0, []byte{0xAA})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, stateReadWrite, f.state)

	// reads after the upgrade keep the read-write descriptor
	got, err := d.ReadBytes(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 1}, got)
	assert.Equal(t, stateReadWrite, f.state)

	require.NoError(t, d.Sync())
	require.NoError(t, d.Close())
	assert.Equal(t, stateClosed, f.state)
}

func TestDisk_WriteBytes_Truncates(t *testing.T) {
	path := createCombinedDump(t, 16)
	d, err := Open(path)
	require.NoError(t, err)

	n, err := d.WriteBytes(12, []byte{9, 9, 9, 9, 9, 9})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = d.WriteBytes(16, []byte{1})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, d.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 16)
	assert.Equal(t, []byte{9, 9, 9, 9}, data[12:])
}

func TestOpen_Split(t *testing.T) {
	first := createSplitDump(t, 3, 16)
	// unrelated siblings are ignored
	dir := filepath.Dir(first)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rawnand.bin.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.bin.00"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rawnand.bin.000"), []byte("x"), 0o644))

	d, err := Open(first)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, KindSplit, d.Kind())
	assert.Equal(t, int64(48), d.Size())

	segs := d.Segments()
	require.Len(t, segs, 3)
	for i, s := range segs {
		assert.Equal(t, int64(i*16), s.Start)
		assert.Equal(t, int64(16), s.Length)
		assert.Equal(t, "rawnand.bin."+twoDigits(i), filepath.Base(s.Path))
	}
}

func TestDisk_ReadBytes_Split(t *testing.T) {
	d, err := Open(createSplitDump(t, 3, 16))
	require.NoError(t, err)
	defer d.Close()

	t.Run("all parts concatenated", func(t *testing.T) {
		got, err := d.ReadBytes(0, 48)
		require.NoError(t, err)
		want := append(append(bytes.Repeat([]byte{0}, 16), bytes.Repeat([]byte{1}, 16)...), bytes.Repeat([]byte{2}, 16)...)
		assert.Equal(t, want, got)
	})

	t.Run("across a boundary", func(t *testing.T) {
		got, err := d.ReadBytes(14, 4)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 1, 1}, got)
	})

	t.Run("across every boundary", func(t *testing.T) {
		got, err := d.ReadBytes(15, 18)
		require.NoError(t, err)
		want := append(append([]byte{0}, bytes.Repeat([]byte{1}, 16)...), 2)
		assert.Equal(t, want, got)
	})

	t.Run("truncated at end", func(t *testing.T) {
		got, err := d.ReadBytes(40, 100)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{2}, 8), got)
	})

	t.Run("past end", func(t *testing.T) {
		got, err := d.ReadBytes(48, 1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDisk_WriteBytes_Split(t *testing.T) {
	first := createSplitDump(t, 3, 16)
	d, err := Open(first)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xFF}, 20)
	n, err := d.WriteBytes(10, payload)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	got, err := d.ReadBytes(8, 24)
	require.NoError(t, err)
	want := append(append([]byte{0, 0}, payload...), 1, 1)
	assert.Equal(t, want, got)

	// truncated write at the tail of the last part
	n, err = d.WriteBytes(44, payload)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, d.Close())

	part0, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), part0[10:])

	part2, err := os.ReadFile(filepath.Join(filepath.Dir(first), "rawnand.bin.02"))
	require.NoError(t, err)
	assert.Len(t, part2, 16)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 4), part2[12:])
}

func TestFindSplitParts(t *testing.T) {
	t.Run("not a part", func(t *testing.T) {
		_, err := FindSplitParts("/tmp/rawnand.bin")
		assert.Error(t, err)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := FindSplitParts(filepath.Join(t.TempDir(), "missing", "rawnand.bin.00"))
		assert.Error(t, err)
	})

	t.Run("sorted", func(t *testing.T) {
		first := createSplitDump(t, 12, 1)
		parts, err := FindSplitParts(first)
		require.NoError(t, err)
		require.Len(t, parts, 12)
		assert.Equal(t, "rawnand.bin.11", filepath.Base(parts[11]))
	})
}
