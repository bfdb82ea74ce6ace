package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-nxnand/internal/nandgen"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

func testKeys() types.BisKeys {
	var keys types.BisKeys
	for i := range keys {
		for j := 0; j < 16; j++ {
			keys[i].Crypto[j] = byte(0x21*i + j)
			keys[i].Tweak[j] = byte(0xA0 - 0x11*i + j)
		}
	}
	return keys
}

// createNand writes a compact image and returns its path
func createNand(t *testing.T, opts nandgen.Options) string {
	t.Helper()
	if len(opts.Layout.Partitions) == 0 {
		opts.Layout = nandgen.CompactLayout()
	}
	path := filepath.Join(t.TempDir(), "rawnand.bin")
	require.NoError(t, nandgen.Create(path, opts))
	return path
}

func openNand(t *testing.T, path string, keys types.BisKeys) *NandService {
	t.Helper()
	s, err := OpenNand(path, Options{Keys: keys, BufferSize: 4096})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewNandService_NilDisk(t *testing.T) {
	_, err := NewNandService(nil, Options{})
	assert.Error(t, err)
}

func TestOpenNand_Missing(t *testing.T) {
	_, err := OpenNand(filepath.Join(t.TempDir(), "missing.bin"), Options{})
	assert.Error(t, err)
}

func TestListPartitions(t *testing.T) {
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Keys: keys}), keys)

	parts, err := s.ListPartitions(false)
	require.NoError(t, err)
	require.Len(t, parts, 11)

	byName := map[string]PartitionInfo{}
	for i, p := range parts {
		assert.Equal(t, i, p.Index)
		assert.True(t, p.Known, p.Name)
		assert.Nil(t, p.Free)
		byName[p.Name] = p
	}

	user := byName["USER"]
	assert.Equal(t, types.FormatFat32, user.Format)
	assert.Equal(t, types.BisKey3, user.BisKeyID)
	assert.True(t, user.Mountable)
	assert.Equal(t, int64(13056*512), user.Offset)
	assert.Equal(t, int64(8192*512), user.Size)

	assert.False(t, byName["PRODINFOF"].Mountable, "FAT12 is listed but not mountable")
	assert.False(t, byName["BCPKG2-1-Normal-Main"].Mountable)
	assert.Equal(t, types.BisKeyNone, byName["BCPKG2-1-Normal-Main"].BisKeyID)
}

func TestListPartitions_WithFree(t *testing.T) {
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Keys: keys}), keys)

	parts, err := s.ListPartitions(true)
	require.NoError(t, err)
	for _, p := range parts {
		if !p.Mountable {
			assert.Nil(t, p.Free, p.Name)
			continue
		}
		require.NotNil(t, p.Free, p.Name)
		assert.Greater(t, *p.Free, int64(0), p.Name)
		assert.Less(t, *p.Free, p.Size, p.Name)
	}
}

func TestListPartitions_FreeNeedsKeys(t *testing.T) {
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Keys: keys}), types.BisKeys{})

	parts, err := s.ListPartitions(true)
	require.NoError(t, err, "partitions that fail to mount are still listed")
	for _, p := range parts {
		assert.Nil(t, p.Free, p.Name)
	}
}

func TestFindPartition(t *testing.T) {
	s := openNand(t, createNand(t, nandgen.Options{Clear: true}), types.BisKeys{})

	p, err := s.FindPartition("system")
	require.NoError(t, err)
	assert.Equal(t, "SYSTEM", p.Name)
	assert.Equal(t, 9, p.Index)
	assert.Equal(t, types.BisKey2, p.Meta().BisKeyID)

	_, err = s.FindPartition("RECOVERY")
	assert.ErrorIs(t, err, types.ErrPartitionNotFound)
}

func TestProbe(t *testing.T) {
	keys := testKeys()
	path := createNand(t, nandgen.Options{Keys: keys})

	wrong := keys
	wrong[types.BisKey2], wrong[types.BisKey3] = keys[types.BisKey3], keys[types.BisKey2]
	missing := keys
	missing[types.BisKey1] = types.BisKey{}

	tests := []struct {
		name string
		keys types.BisKeys
		want map[string]ProbeStatus
	}{
		{
			name: "right keys",
			keys: keys,
			want: map[string]ProbeStatus{
				"PRODINFO":             ProbeDecrypted,
				"PRODINFOF":            ProbeMismatch,
				"BCPKG2-1-Normal-Main": ProbeNotApplicable,
				"SAFE":                 ProbeDecrypted,
				"SYSTEM":               ProbeDecrypted,
				"USER":                 ProbeDecrypted,
			},
		},
		{
			name: "swapped keys",
			keys: wrong,
			want: map[string]ProbeStatus{
				"SAFE":   ProbeDecrypted,
				"SYSTEM": ProbeMismatch,
				"USER":   ProbeMismatch,
			},
		},
		{
			name: "missing key",
			keys: missing,
			want: map[string]ProbeStatus{
				"SAFE": ProbeMissingKey,
				"USER": ProbeDecrypted,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openNand(t, path, tt.keys)
			results, err := s.Probe()
			require.NoError(t, err)
			require.Len(t, results, 11)

			got := map[string]ProbeStatus{}
			for _, r := range results {
				got[r.Partition] = r.Status
			}
			for name, status := range tt.want {
				assert.Equal(t, status, got[name], name)
			}
		})
	}
}

func TestProbe_ClearText(t *testing.T) {
	s := openNand(t, createNand(t, nandgen.Options{Clear: true}), types.BisKeys{})

	results, err := s.Probe()
	require.NoError(t, err)
	got := map[string]ProbeStatus{}
	for _, r := range results {
		got[r.Partition] = r.Status
	}
	assert.Equal(t, ProbeClear, got["PRODINFO"])
	assert.Equal(t, ProbeClear, got["USER"])
	assert.Equal(t, ProbeMissingKey, got["PRODINFOF"], "blank FAT12 partition still wants its key")
}

func TestOpenLayer_ClearTextSkipsCipher(t *testing.T) {
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Clear: true}), keys)

	p, err := s.FindPartition("USER")
	require.NoError(t, err)
	layer, err := s.OpenLayer(p)
	require.NoError(t, err)
	assert.False(t, layer.Encrypted())

	s = openNand(t, createNand(t, nandgen.Options{Keys: keys}), keys)
	p, err = s.FindPartition("USER")
	require.NoError(t, err)
	layer, err = s.OpenLayer(p)
	require.NoError(t, err)
	assert.True(t, layer.Encrypted())
}

func TestMount_Errors(t *testing.T) {
	keys := testKeys()
	path := createNand(t, nandgen.Options{Keys: keys})

	wrong := keys
	wrong[types.BisKey2] = keys[types.BisKey0]
	missing := keys
	missing[types.BisKey3] = types.BisKey{}

	tests := []struct {
		name      string
		keys      types.BisKeys
		partition string
		want      error
	}{
		{"not FAT", keys, "BCPKG2-1-Normal-Main", types.ErrUnsupportedFormat},
		{"wrong key", wrong, "SYSTEM", types.ErrKeyMismatch},
		{"missing key", missing, "USER", types.ErrMissingKey},
		{"unknown partition", keys, "NOPE", types.ErrPartitionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openNand(t, path, tt.keys)
			_, err := s.Mount(tt.partition, true)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMount_Fat12Unsupported(t *testing.T) {
	keys := testKeys()
	s := openNand(t, createNand(t, nandgen.Options{Keys: keys}), keys)

	p, err := s.FindPartition("PRODINFOF")
	require.NoError(t, err)
	layer, err := s.OpenLayer(p)
	require.NoError(t, err)
	_, err = layer.WriteBytes(0x680, []byte("CERTIF"))
	require.NoError(t, err)

	_, err = s.Mount("PRODINFOF", true)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestVerifyAndRepairPartitionTable(t *testing.T) {
	s := openNand(t, createNand(t, nandgen.Options{Clear: true}), types.BisKeys{})

	report, err := s.VerifyPartitionTable()
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Problem())

	// wipe the backup header in the last LBA
	_, err = s.Disk().WriteBytes(s.Disk().Size()-512, make([]byte, 512))
	require.NoError(t, err)

	report, err = s.VerifyPartitionTable()
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Contains(t, report.Problem(), "failed to parse backup GPT table")

	require.NoError(t, s.RepairBackupPartitionTable())

	report, err = s.VerifyPartitionTable()
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Problem())
}
