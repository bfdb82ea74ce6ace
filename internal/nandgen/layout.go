package nandgen

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-nxnand/internal/parsers/gpt"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// PartitionSpec is one entry of a generated partition table
type PartitionSpec struct {
	Type       uuid.UUID
	GUID       uuid.UUID
	Name       string
	FirstLBA   uint64
	LastLBA    uint64
	Attributes uint64
}

// Layout describes the partition table of a generated image
type Layout struct {
	DiskGUID   uuid.UUID
	Sectors    uint64
	Partitions []PartitionSpec
}

// Size returns the image size in bytes
func (l Layout) Size() int64 {
	return int64(l.Sectors) * types.LBASize
}

// Validate checks that partitions are ordered, do not overlap and leave room
// for the primary and backup tables
func (l Layout) Validate() error {
	if l.Sectors < 68 {
		return fmt.Errorf("image of %d sectors is too small for a GPT", l.Sectors)
	}
	next := uint64(34)
	lastUsable := l.Sectors - 34
	for _, p := range l.Partitions {
		if p.FirstLBA < next {
			return fmt.Errorf("partition %s starts at LBA %d, overlapping the previous entry", p.Name, p.FirstLBA)
		}
		if p.LastLBA < p.FirstLBA {
			return fmt.Errorf("partition %s ends before it starts", p.Name)
		}
		if p.LastLBA > lastUsable {
			return fmt.Errorf("partition %s ends at LBA %d, past the last usable LBA %d", p.Name, p.LastLBA, lastUsable)
		}
		next = p.LastLBA + 1
	}
	return nil
}

var (
	defaultDiskGUID = uuid.MustParse("EDD7049E-B2D3-4067-B3D9-E5A8F398258F")
	sharedGUID      = uuid.MustParse("5561E2D3-9B30-4D80-A546-10EB7C0151FC")
)

// DefaultLayout is the 32 GB eMMC layout of a retail console
func DefaultLayout() Layout {
	return Layout{
		DiskGUID: defaultDiskGUID,
		Sectors:  61071360,
		Partitions: []PartitionSpec{
			{Type: gpt.TypeProdInfo, GUID: sharedGUID, Name: "PRODINFO", FirstLBA: 34, LastLBA: 8191, Attributes: 1},
			{Type: gpt.TypeProdInfoF, GUID: sharedGUID, Name: "PRODINFOF", FirstLBA: 8192, LastLBA: 16383, Attributes: 1},
			{Type: gpt.TypeBCPKG2NormalMain, GUID: uuid.MustParse("755272B7-445C-46A3-987B-D40E5D25EB83"), Name: "BCPKG2-1-Normal-Main", FirstLBA: 16384, LastLBA: 32767, Attributes: 1},
			{Type: gpt.TypeBCPKG2NormalSub, GUID: uuid.MustParse("EAD904D9-61A3-4DBA-BB11-6E516A1F4093"), Name: "BCPKG2-2-Normal-Sub", FirstLBA: 32768, LastLBA: 49151, Attributes: 1},
			{Type: gpt.TypeBCPKG2SafeMain, GUID: uuid.MustParse("EF78007A-D02C-4BF8-9BEF-B5B5CB3F2B76"), Name: "BCPKG2-3-SafeMode-Main", FirstLBA: 49152, LastLBA: 65535, Attributes: 1},
			{Type: gpt.TypeBCPKG2SafeSub, GUID: uuid.MustParse("DACB7CD3-5624-41D9-85BF-DB61AE5A0096"), Name: "BCPKG2-4-SafeMode-Sub", FirstLBA: 65536, LastLBA: 81919, Attributes: 1},
			{Type: gpt.TypeBCPKG2RepairMain, GUID: uuid.MustParse("1C58F253-945E-4F24-95F2-29091B775F56"), Name: "BCPKG2-5-Repair-Main", FirstLBA: 81920, LastLBA: 98303, Attributes: 1},
			{Type: gpt.TypeBCPKG2RepairSub, GUID: sharedGUID, Name: "BCPKG2-6-Repair-Sub", FirstLBA: 98304, LastLBA: 114687, Attributes: 1},
			{Type: gpt.TypeSafe, GUID: sharedGUID, Name: "SAFE", FirstLBA: 114688, LastLBA: 245759, Attributes: 1},
			{Type: gpt.TypeSystem, GUID: sharedGUID, Name: "SYSTEM", FirstLBA: 245760, LastLBA: 5488639, Attributes: 1},
			{Type: gpt.TypeUser, GUID: sharedGUID, Name: "USER", FirstLBA: 5488640, LastLBA: 60014591, Attributes: 1},
		},
	}
}

// CompactLayout keeps every partition of DefaultLayout but shrinks them to a
// few megabytes. Useful for tests and demos.
func CompactLayout() Layout {
	sizes := []uint64{
		2014, 2048, // PRODINFO starts at 34 so it ends on LBA 2047
		128, 128, 128, 128, 128, 128,
		4096, 4096, 8192,
	}
	l := DefaultLayout()
	next := uint64(34)
	for i := range l.Partitions {
		l.Partitions[i].FirstLBA = next
		l.Partitions[i].LastLBA = next + sizes[i] - 1
		next += sizes[i]
	}
	l.Sectors = next + 33
	return l
}
