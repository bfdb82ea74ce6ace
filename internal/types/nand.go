// File: internal/types/nand.go
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// LBASize is the logical block size used by NAND partition tables.
const LBASize = 512

// PartitionFormat is the on-disk format of a NAND partition.
type PartitionFormat int

const (
	FormatUnknown PartitionFormat = iota
	FormatFat12
	FormatFat32
)

// String returns the display name of the format
func (f PartitionFormat) String() string {
	switch f {
	case FormatFat12:
		return "FAT12"
	case FormatFat32:
		return "FAT32"
	default:
		return "Unknown"
	}
}

// IsFAT reports whether the format carries a FAT filesystem
func (f PartitionFormat) IsFAT() bool {
	return f == FormatFat12 || f == FormatFat32
}

// MarshalText renders the format by name for json and yaml output
func (f PartitionFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// BisKeyID identifies one of the built-in storage key slots.
type BisKeyID int

const (
	BisKeyNone BisKeyID = -1
	BisKey0    BisKeyID = 0
	BisKey1    BisKeyID = 1
	BisKey2    BisKeyID = 2
	BisKey3    BisKeyID = 3
)

// Valid reports whether the id names a real key slot
func (id BisKeyID) Valid() bool {
	return id >= BisKey0 && id <= BisKey3
}

// String returns "bis0".."bis3" or "none"
func (id BisKeyID) String() string {
	if !id.Valid() {
		return "none"
	}
	return fmt.Sprintf("bis%d", int(id))
}

// MarshalText renders the key slot by name for json and yaml output
func (id BisKeyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// BisKey is the key pair for one BIS slot
type BisKey struct {
	Crypto [16]byte
	Tweak  [16]byte
}

// IsZero reports whether neither half of the key has been set
func (k BisKey) IsZero() bool {
	return k == BisKey{}
}

// BisKeys holds the keys of all four BIS slots. Unset slots are zero.
type BisKeys [4]BisKey

// Get returns the key for a slot and whether it is set
func (k *BisKeys) Get(id BisKeyID) (BisKey, bool) {
	if k == nil || !id.Valid() || k[id].IsZero() {
		return BisKey{}, false
	}
	return k[id], true
}

// NxPartitionMeta describes a known NAND partition kind
type NxPartitionMeta struct {
	// Display name of the partition
	Name string `json:"name" yaml:"name"`

	// On-disk format of the partition contents
	Format PartitionFormat `json:"format" yaml:"format"`

	// Key slot used to encrypt the partition, BisKeyNone for plaintext
	BisKeyID BisKeyID `json:"bis_key" yaml:"bis_key"`

	// Offset of the magic bytes inside the decrypted partition
	MagicOffset int64 `json:"magic_offset,omitempty" yaml:"magic_offset,omitempty"`

	// Expected magic bytes, empty when the partition has no probe
	Magic []byte `json:"magic,omitempty" yaml:"magic,omitempty"`
}

// Encrypted reports whether the partition uses a BIS key
func (m NxPartitionMeta) Encrypted() bool {
	return m.BisKeyID.Valid()
}

// HasMagic reports whether a key-sanity probe is defined for the partition
func (m NxPartitionMeta) HasMagic() bool {
	return len(m.Magic) > 0
}

// Partition is a single GPT partition entry
type Partition struct {
	TypeGUID   uuid.UUID `json:"type_guid" yaml:"type_guid"`
	UniqueGUID uuid.UUID `json:"unique_guid" yaml:"unique_guid"`
	Name       string    `json:"name" yaml:"name"`
	FirstLBA   uint64    `json:"first_lba" yaml:"first_lba"`
	LastLBA    uint64    `json:"last_lba" yaml:"last_lba"`
	Attributes uint64    `json:"attributes" yaml:"attributes"`
}

// Offset returns the byte offset of the partition on disk
func (p Partition) Offset(blockSize int64) int64 {
	return int64(p.FirstLBA) * blockSize
}

// End returns the byte offset just past the last block of the partition
func (p Partition) End(blockSize int64) int64 {
	return int64(p.LastLBA+1) * blockSize
}

// Size returns the partition size in bytes
func (p Partition) Size(blockSize int64) int64 {
	return p.End(blockSize) - p.Offset(blockSize)
}

// GptHeader holds the decoded fields of a GPT header
type GptHeader struct {
	Signature       uint64    `json:"-" yaml:"-"`
	Revision        uint32    `json:"revision" yaml:"revision"`
	HeaderSize      uint32    `json:"header_size" yaml:"header_size"`
	HeaderCRC32     uint32    `json:"header_crc32" yaml:"header_crc32"`
	CurrentLBA      uint64    `json:"current_lba" yaml:"current_lba"`
	BackupLBA       uint64    `json:"backup_lba" yaml:"backup_lba"`
	FirstUsableLBA  uint64    `json:"first_usable_lba" yaml:"first_usable_lba"`
	LastUsableLBA   uint64    `json:"last_usable_lba" yaml:"last_usable_lba"`
	DiskGUID        uuid.UUID `json:"disk_guid" yaml:"disk_guid"`
	TableOffset     uint64    `json:"table_lba" yaml:"table_lba"`
	NumEntries      uint32    `json:"num_entries" yaml:"num_entries"`
	EntrySize       uint32    `json:"entry_size" yaml:"entry_size"`
	EntryArrayCRC32 uint32    `json:"entry_array_crc32" yaml:"entry_array_crc32"`
}

// TableSize returns the size in bytes of the partition entry array
func (h GptHeader) TableSize() int64 {
	return int64(h.NumEntries) * int64(h.EntrySize)
}

// GptTable is a parsed GPT header plus its partition entries
type GptTable struct {
	Header     GptHeader   `json:"header" yaml:"header"`
	BlockSize  int64       `json:"block_size" yaml:"block_size"`
	Partitions []Partition `json:"partitions" yaml:"partitions"`

	// Raw bytes of the header block and the full entry array, kept for CRC checks and repair
	RawHeader  []byte `json:"-" yaml:"-"`
	RawEntries []byte `json:"-" yaml:"-"`
}
