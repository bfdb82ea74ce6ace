package gpt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

const (
	mbrSize      = 512
	mbrSignature = 0xAA55

	// MBRTypeProtective marks the protective entry of a GPT disk
	MBRTypeProtective = 0xEE
	// MBRTypeEFISystem marks an EFI system partition
	MBRTypeEFISystem = 0xEF
)

// mbrPartitionEntry is one of the four 16 byte MBR partition records
type mbrPartitionEntry struct {
	Status   uint8   // Offset 0
	CHSFirst [3]byte // Offset 1
	Type     uint8   // Offset 4
	CHSLast  [3]byte // Offset 5
	FirstLBA uint32  // Offset 8
	Sectors  uint32  // Offset 12
}

// mbr is the classic 512 byte master boot record
type mbr struct {
	BootCode  [446]byte
	Entries   [4]mbrPartitionEntry
	Signature uint16
}

// EfiPartition is the MBR entry pointing at the GPT
type EfiPartition struct {
	Type     uint8
	FirstLBA uint32
	Sectors  uint32
}

// Protective reports whether the entry is a protective GPT entry
func (e EfiPartition) Protective() bool {
	return e.Type == MBRTypeProtective
}

// FindEfiPartition parses the MBR at offset 0 and returns the protective GPT
// entry, falling back to an EFI system partition entry. It returns nil when
// neither exists.
func FindEfiPartition(r interfaces.DiskReader) (*EfiPartition, error) {
	data, err := r.ReadBytes(0, mbrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read MBR: %w", err)
	}
	if len(data) < mbrSize {
		return nil, fmt.Errorf("%w: short MBR read of %d bytes", types.ErrInvalidFormat, len(data))
	}

	var m mbr
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &m); err != nil {
		return nil, fmt.Errorf("failed to parse MBR: %w", err)
	}
	if m.Signature != mbrSignature {
		return nil, fmt.Errorf("%w: bad MBR signature %#04x", types.ErrInvalidFormat, m.Signature)
	}

	for _, want := range []uint8{MBRTypeProtective, MBRTypeEFISystem} {
		for _, e := range m.Entries {
			if e.Type == want {
				return &EfiPartition{Type: e.Type, FirstLBA: e.FirstLBA, Sectors: e.Sectors}, nil
			}
		}
	}
	return nil, nil
}
