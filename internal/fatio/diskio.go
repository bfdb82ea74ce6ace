// File: internal/fatio/diskio.go
// Package fatio adapts a partition IO layer to the sector-oriented contract of
// a FAT driver.
package fatio

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// DefaultSectorSize is the FAT sector size used when none is detected
const DefaultSectorSize = 512

// IoctlCmd is a disk control command issued by the FAT driver
type IoctlCmd uint8

const (
	// CtrlSync flushes pending writes
	CtrlSync IoctlCmd = 0
	// GetSectorCount stores the number of sectors in the partition
	GetSectorCount IoctlCmd = 1
	// GetSectorSize stores the sector size in bytes
	GetSectorSize IoctlCmd = 2
	// GetBlockSize stores the erase block size in sectors
	GetBlockSize IoctlCmd = 3
)

func (c IoctlCmd) String() string {
	switch c {
	case CtrlSync:
		return "CTRL_SYNC"
	case GetSectorCount:
		return "GET_SECTOR_COUNT"
	case GetSectorSize:
		return "GET_SECTOR_SIZE"
	case GetBlockSize:
		return "GET_BLOCK_SIZE"
	default:
		return fmt.Sprintf("ioctl(%d)", uint8(c))
	}
}

// Syncer flushes buffered writes to stable storage
type Syncer interface {
	Sync() error
}

// Options configures a DiskIO
type Options struct {
	// ReadOnly rejects every Write with types.ErrReadOnly
	ReadOnly bool
	// SectorSize overrides the sector size. Zero reads BPB_BytsPerSec from the
	// boot sector and falls back to DefaultSectorSize.
	SectorSize int64
	// Syncer is flushed on CtrlSync, usually the underlying virtual disk
	Syncer Syncer
}

// DiskIO exposes a partition as numbered sectors
type DiskIO struct {
	dev        interfaces.DiskIO
	sectorSize int64
	readOnly   bool
	syncer     Syncer
}

// New creates a sector adapter over a partition
func New(dev interfaces.DiskIO, opts Options) (*DiskIO, error) {
	if dev == nil {
		return nil, fmt.Errorf("partition cannot be nil")
	}

	sectorSize := opts.SectorSize
	if sectorSize == 0 {
		sectorSize = detectSectorSize(dev)
	}
	if sectorSize <= 0 || sectorSize&(sectorSize-1) != 0 {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}

	return &DiskIO{
		dev:        dev,
		sectorSize: sectorSize,
		readOnly:   opts.ReadOnly,
		syncer:     opts.Syncer,
	}, nil
}

// detectSectorSize reads BPB_BytsPerSec at offset 11 of the boot sector
func detectSectorSize(dev interfaces.DiskReader) int64 {
	buf, err := dev.ReadBytes(0, 16)
	if err != nil || len(buf) < 13 {
		return DefaultSectorSize
	}
	switch size := int64(binary.LittleEndian.Uint16(buf[11:13])); size {
	case 512, 1024, 2048, 4096:
		return size
	default:
		return DefaultSectorSize
	}
}

// SectorSize returns the sector size in bytes
func (d *DiskIO) SectorSize() int64 { return d.sectorSize }

// SectorCount returns the number of whole sectors in the partition
func (d *DiskIO) SectorCount() uint64 {
	return uint64(d.dev.Size() / d.sectorSize)
}

// ReadOnly reports whether writes are rejected
func (d *DiskIO) ReadOnly() bool { return d.readOnly }

// Initialize prepares the drive. There is nothing to do so it always succeeds.
func (d *DiskIO) Initialize() int { return 0 }

// Status reports the drive as ready
func (d *DiskIO) Status() int { return 0 }

// Read fills buf with count sectors starting at sector
func (d *DiskIO) Read(buf []byte, sector, count uint64) error {
	size := int(count) * int(d.sectorSize)
	if len(buf) < size {
		return fmt.Errorf("buffer of %d bytes is too small for %d sectors", len(buf), count)
	}

	data, err := d.dev.ReadBytes(int64(sector)*d.sectorSize, size)
	if err != nil {
		return fmt.Errorf("failed to read %d sectors at sector %d: %w", count, sector, err)
	}
	if len(data) < size {
		return fmt.Errorf("short read at sector %d: %d of %d bytes", sector, len(data), size)
	}
	copy(buf, data)
	return nil
}

// Write stores count sectors from buf starting at sector
func (d *DiskIO) Write(buf []byte, sector, count uint64) error {
	if d.readOnly {
		return fmt.Errorf("write of %d sectors at sector %d: %w", count, sector, types.ErrReadOnly)
	}

	size := int(count) * int(d.sectorSize)
	if len(buf) < size {
		return fmt.Errorf("buffer of %d bytes is too small for %d sectors", len(buf), count)
	}

	n, err := d.dev.WriteBytes(int64(sector)*d.sectorSize, buf[:size])
	if err != nil {
		return fmt.Errorf("failed to write %d sectors at sector %d: %w", count, sector, err)
	}
	if n < size {
		return fmt.Errorf("short write at sector %d: %d of %d bytes", sector, n, size)
	}
	return nil
}

// Ioctl executes a control command, storing any result in out
func (d *DiskIO) Ioctl(cmd IoctlCmd, out *uint64) error {
	switch cmd {
	case CtrlSync:
		if d.syncer != nil && !d.readOnly {
			return d.syncer.Sync()
		}
		return nil
	case GetSectorCount, GetSectorSize, GetBlockSize:
		if out == nil {
			return fmt.Errorf("%s needs an output value", cmd)
		}
	default:
		log.Warnf("%s: not implemented", cmd)
		return fmt.Errorf("%w: %s", types.ErrUnsupportedIoctl, cmd)
	}

	switch cmd {
	case GetSectorCount:
		*out = d.SectorCount()
	case GetSectorSize:
		*out = uint64(d.sectorSize)
	case GetBlockSize:
		*out = 1
	}
	return nil
}
