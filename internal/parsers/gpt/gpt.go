// File: internal/parsers/gpt/gpt.go
package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

const (
	// Standard GPT Header signature "EFI PART"
	gptHeaderSignature = 0x5452415020494645
	// Size of the GPT header up to the entry array CRC32
	gptHeaderSize = 92
	// Minimum size of a GPT partition entry
	gptPartitionEntrySize = 128
	// Blocks reserved for the backup entry array in front of the backup header
	backupTableBlocks = 32
	// Upper bound on the entry array we are willing to read
	maxTableSize = 1 << 20
)

// gptHeader is the on-disk GPT header.
// Based on UEFI Specification 2.10, Section 5.3.2
type gptHeader struct {
	Signature                uint64   // Offset 0
	Revision                 uint32   // Offset 8
	HeaderSize               uint32   // Offset 12
	HeaderCRC32              uint32   // Offset 16
	Reserved                 uint32   // Offset 20
	MyLBA                    uint64   // Offset 24
	AlternateLBA             uint64   // Offset 32
	FirstUsableLBA           uint64   // Offset 40
	LastUsableLBA            uint64   // Offset 48
	DiskGUID                 [16]byte // Offset 56
	PartitionEntryLBA        uint64   // Offset 72
	NumberOfPartitionEntries uint32   // Offset 80
	SizeOfPartitionEntry     uint32   // Offset 84
	PartitionEntryArrayCRC32 uint32   // Offset 88
}

// gptPartitionEntry is the on-disk GPT partition entry.
// Based on UEFI Specification 2.10, Section 5.3.3
type gptPartitionEntry struct {
	PartitionTypeGUID   [16]byte // Offset 0
	UniquePartitionGUID [16]byte // Offset 16
	FirstLBA            uint64   // Offset 32
	LastLBA             uint64   // Offset 40
	Attributes          uint64   // Offset 48
	PartitionName       [72]byte // Offset 56: UTF-16LE (36 characters)
}

// ReadPrimary reads the primary GPT. The header sits at the first LBA of the
// protective MBR entry when there is one, otherwise at LBA 1. A malformed MBR
// signature aborts the read.
func ReadPrimary(r interfaces.DiskReader) (*types.GptTable, error) {
	headerOffset := int64(types.LBASize)

	efi, err := FindEfiPartition(r)
	if err != nil {
		return nil, fmt.Errorf("failed to locate primary GPT: %w", err)
	}
	if efi != nil && efi.Protective() {
		headerOffset = int64(efi.FirstLBA) * types.LBASize
	}

	header, raw, err := readHeader(r, headerOffset)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary GPT header: %w", err)
	}

	table := &types.GptTable{Header: *header, BlockSize: types.LBASize, RawHeader: raw}
	if err := readEntries(r, table, int64(header.TableOffset)*types.LBASize); err != nil {
		return nil, fmt.Errorf("failed to read primary GPT entries: %w", err)
	}
	return table, nil
}

// ReadBackup reads the backup GPT described by a primary table. The backup
// entry array is stored in the 32 blocks in front of the backup header.
func ReadBackup(r interfaces.DiskReader, primary *types.GptTable) (*types.GptTable, error) {
	if primary.Header.BackupLBA < backupTableBlocks {
		return nil, fmt.Errorf("%w: backup LBA %d is too small", types.ErrInvalidFormat, primary.Header.BackupLBA)
	}
	blockSize := primary.BlockSize

	header, raw, err := readHeader(r, int64(primary.Header.BackupLBA)*blockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup GPT header: %w", err)
	}

	table := &types.GptTable{Header: *header, BlockSize: blockSize, RawHeader: raw}
	tableOffset := int64(primary.Header.BackupLBA-backupTableBlocks) * blockSize
	if err := readEntries(r, table, tableOffset); err != nil {
		return nil, fmt.Errorf("failed to read backup GPT entries: %w", err)
	}
	return table, nil
}

// readHeader reads and decodes one header block
func readHeader(r interfaces.DiskReader, offset int64) (*types.GptHeader, []byte, error) {
	data, err := r.ReadBytes(offset, types.LBASize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read GPT header data at offset %d: %w", offset, err)
	}
	if len(data) < gptHeaderSize {
		return nil, nil, fmt.Errorf("%w: short read for GPT header at offset %d: %d bytes", types.ErrInvalidFormat, offset, len(data))
	}

	var h gptHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("failed to parse GPT header binary data: %w", err)
	}
	if h.Signature != gptHeaderSignature {
		return nil, nil, fmt.Errorf("%w: invalid GPT signature at offset %d: got %X", types.ErrInvalidFormat, offset, h.Signature)
	}
	if h.HeaderSize < gptHeaderSize || int(h.HeaderSize) > len(data) {
		return nil, nil, fmt.Errorf("%w: invalid GPT header size %d", types.ErrInvalidFormat, h.HeaderSize)
	}
	if h.SizeOfPartitionEntry < gptPartitionEntrySize {
		return nil, nil, fmt.Errorf("%w: invalid GPT entry size %d", types.ErrInvalidFormat, h.SizeOfPartitionEntry)
	}
	if int64(h.NumberOfPartitionEntries)*int64(h.SizeOfPartitionEntry) > maxTableSize {
		return nil, nil, fmt.Errorf("%w: GPT entry array of %d x %d bytes is too large", types.ErrInvalidFormat, h.NumberOfPartitionEntries, h.SizeOfPartitionEntry)
	}
	if h.SizeOfPartitionEntry != gptPartitionEntrySize {
		log.Warnf("GPT header reports an entry size of %d, expected %d", h.SizeOfPartitionEntry, gptPartitionEntrySize)
	}

	return &types.GptHeader{
		Signature:       h.Signature,
		Revision:        h.Revision,
		HeaderSize:      h.HeaderSize,
		HeaderCRC32:     h.HeaderCRC32,
		CurrentLBA:      h.MyLBA,
		BackupLBA:       h.AlternateLBA,
		FirstUsableLBA:  h.FirstUsableLBA,
		LastUsableLBA:   h.LastUsableLBA,
		DiskGUID:        guidFromDisk(h.DiskGUID),
		TableOffset:     h.PartitionEntryLBA,
		NumEntries:      h.NumberOfPartitionEntries,
		EntrySize:       h.SizeOfPartitionEntry,
		EntryArrayCRC32: h.PartitionEntryArrayCRC32,
	}, data, nil
}

// readEntries reads the entry array at offset and decodes entries up to the
// first one with an all-zero type GUID
func readEntries(r interfaces.DiskReader, table *types.GptTable, offset int64) error {
	size := table.Header.TableSize()
	data, err := r.ReadBytes(offset, int(size))
	if err != nil {
		return fmt.Errorf("failed to read partition entry array at offset %d: %w", offset, err)
	}
	if int64(len(data)) < size {
		return fmt.Errorf("%w: short read for partition entry array: read %d bytes, expected %d", types.ErrInvalidFormat, len(data), size)
	}
	table.RawEntries = data

	entrySize := int(table.Header.EntrySize)
	for i := 0; i < int(table.Header.NumEntries); i++ {
		var entry gptPartitionEntry
		chunk := data[i*entrySize : i*entrySize+gptPartitionEntrySize]
		if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, &entry); err != nil {
			return fmt.Errorf("failed to parse partition entry %d: %w", i, err)
		}
		if entry.PartitionTypeGUID == ([16]byte{}) {
			break
		}
		table.Partitions = append(table.Partitions, types.Partition{
			TypeGUID:   guidFromDisk(entry.PartitionTypeGUID),
			UniqueGUID: guidFromDisk(entry.UniquePartitionGUID),
			Name:       decodeUTF16LE(entry.PartitionName[:]),
			FirstLBA:   entry.FirstLBA,
			LastLBA:    entry.LastLBA,
			Attributes: entry.Attributes,
		})
	}
	return nil
}

// headerChecksum computes the CRC32 of a raw header with its CRC field zeroed
func headerChecksum(raw []byte, headerSize uint32) uint32 {
	buf := make([]byte, headerSize)
	copy(buf, raw[:headerSize])
	binary.LittleEndian.PutUint32(buf[16:20], 0)
	return crc32.ChecksumIEEE(buf)
}

// HeaderValid reports whether the stored header CRC32 matches its contents
func HeaderValid(t *types.GptTable) bool {
	if len(t.RawHeader) < int(t.Header.HeaderSize) {
		return false
	}
	return headerChecksum(t.RawHeader, t.Header.HeaderSize) == t.Header.HeaderCRC32
}

// TableValid reports whether the stored entry array CRC32 matches the entries
func TableValid(t *types.GptTable) bool {
	return crc32.ChecksumIEEE(t.RawEntries) == t.Header.EntryArrayCRC32
}

// FindPartition returns the first partition with the given name, ignoring case
func FindPartition(t *types.GptTable, name string) (types.Partition, bool) {
	for _, p := range t.Partitions {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return types.Partition{}, false
}
