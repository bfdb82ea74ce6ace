package fatio

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/stream"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// BootSector holds the BIOS parameter block fields of a FAT boot sector.
// http://elm-chan.org/docs/fat_e.html#bpb
type BootSector struct {
	OEMName           string `json:"oem_name" yaml:"oem_name"`
	BytesPerSector    uint16 `json:"bytes_per_sector" yaml:"bytes_per_sector"`
	SectorsPerCluster uint8  `json:"sectors_per_cluster" yaml:"sectors_per_cluster"`
	ReservedSectors   uint16 `json:"reserved_sectors" yaml:"reserved_sectors"`
	NumFATs           uint8  `json:"num_fats" yaml:"num_fats"`
	RootEntries       uint16 `json:"root_entries" yaml:"root_entries"`
	TotalSectors      uint32 `json:"total_sectors" yaml:"total_sectors"`
	Media             uint8  `json:"media" yaml:"media"`
	SectorsPerFAT     uint32 `json:"sectors_per_fat" yaml:"sectors_per_fat"`
	HiddenSectors     uint32 `json:"hidden_sectors" yaml:"hidden_sectors"`
	// FAT32 only
	RootCluster  uint32 `json:"root_cluster,omitempty" yaml:"root_cluster,omitempty"`
	VolumeLabel  string `json:"volume_label,omitempty" yaml:"volume_label,omitempty"`
	FileSysType  string `json:"fs_type,omitempty" yaml:"fs_type,omitempty"`
	SerialNumber uint32 `json:"serial,omitempty" yaml:"serial,omitempty"`
}

// bootSectorSize is the part of sector 0 that carries the BPB and signature
const bootSectorSize = 512

// ParseBootSector decodes the BPB from the first bytes of a FAT volume
func ParseBootSector(b []byte) (*BootSector, error) {
	if len(b) < bootSectorSize {
		return nil, fmt.Errorf("%w: boot sector needs %d bytes, got %d", types.ErrInvalidFormat, bootSectorSize, len(b))
	}
	if b[510] != 0x55 || b[511] != 0xAA {
		return nil, fmt.Errorf("%w: missing boot sector signature", types.ErrInvalidFormat)
	}

	bs := &BootSector{
		OEMName:           strings.TrimRight(string(b[3:11]), " \x00"),
		BytesPerSector:    binary.LittleEndian.Uint16(b[11:13]),
		SectorsPerCluster: b[13],
		ReservedSectors:   binary.LittleEndian.Uint16(b[14:16]),
		NumFATs:           b[16],
		RootEntries:       binary.LittleEndian.Uint16(b[17:19]),
		Media:             b[21],
		HiddenSectors:     binary.LittleEndian.Uint32(b[28:32]),
	}

	bs.TotalSectors = uint32(binary.LittleEndian.Uint16(b[19:21]))
	if bs.TotalSectors == 0 {
		bs.TotalSectors = binary.LittleEndian.Uint32(b[32:36])
	}

	bs.SectorsPerFAT = uint32(binary.LittleEndian.Uint16(b[22:24]))
	if bs.SectorsPerFAT == 0 {
		bs.SectorsPerFAT = binary.LittleEndian.Uint32(b[36:40])
		bs.RootCluster = binary.LittleEndian.Uint32(b[44:48])
		bs.SerialNumber = binary.LittleEndian.Uint32(b[67:71])
		bs.VolumeLabel = strings.TrimRight(string(b[71:82]), " \x00")
		bs.FileSysType = strings.TrimRight(string(b[82:90]), " \x00")
	}

	if bs.BytesPerSector == 0 || bs.SectorsPerCluster == 0 || bs.NumFATs == 0 {
		return nil, fmt.Errorf("%w: boot sector has zero geometry fields", types.ErrInvalidFormat)
	}
	return bs, nil
}

// ReadBootSector reads and decodes the boot sector of a partition
func ReadBootSector(dev interfaces.DiskReader) (*BootSector, error) {
	b, err := dev.ReadBytes(0, bootSectorSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read boot sector: %w", err)
	}
	return ParseBootSector(b)
}

// ClusterSize returns the cluster size in bytes
func (bs *BootSector) ClusterSize() int64 {
	return int64(bs.BytesPerSector) * int64(bs.SectorsPerCluster)
}

// ClusterCount returns the number of data clusters
func (bs *BootSector) ClusterCount() uint32 {
	rootDirSectors := (uint32(bs.RootEntries)*32 + uint32(bs.BytesPerSector) - 1) / uint32(bs.BytesPerSector)
	meta := uint32(bs.ReservedSectors) + uint32(bs.NumFATs)*bs.SectorsPerFAT + rootDirSectors
	if meta >= bs.TotalSectors {
		return 0
	}
	return (bs.TotalSectors - meta) / uint32(bs.SectorsPerCluster)
}

// FreeBytes counts unused clusters in the first FAT of a FAT32 volume. The
// FSInfo free count is not trusted since writers often leave it unknown.
func FreeBytes(dev interfaces.DiskReader, bs *BootSector) (int64, error) {
	if bs.SectorsPerFAT == 0 || bs.RootCluster == 0 {
		return 0, fmt.Errorf("%w: free space is only counted on FAT32", types.ErrUnsupportedFormat)
	}

	clusters := int64(bs.ClusterCount())
	fatOffset := int64(bs.ReservedSectors) * int64(bs.BytesPerSector)
	// entries 0 and 1 are reserved
	length := min((clusters+2)*4, int64(bs.SectorsPerFAT)*int64(bs.BytesPerSector))

	var free, index int64
	c := stream.NewChunks(stream.NewDiskReader(dev, fatOffset, length), length, stream.DefaultBufferSize, nil)
	for c.Next() {
		chunk := c.Bytes()
		for i := 0; i+4 <= len(chunk); i, index = i+4, index+1 {
			if index < 2 {
				continue
			}
			if binary.LittleEndian.Uint32(chunk[i:])&0x0FFFFFFF == 0 {
				free++
			}
		}
	}
	if err := c.Err(); err != nil {
		return 0, fmt.Errorf("failed to read FAT: %w", err)
	}
	return free * bs.ClusterSize(), nil
}
