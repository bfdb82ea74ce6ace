// File: internal/partio/layer.go
package partio

import (
	"fmt"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
)

// Layer maps partition-relative offsets onto a disk and, when a Crypto is
// set, decrypts reads and re-encrypts writes. Unaligned writes go through a
// read-modify-write of the surrounding cipher blocks.
//
// Layer does no locking; callers serialise access to one partition.
type Layer struct {
	disk   interfaces.DiskIO
	start  int64
	end    int64
	crypto interfaces.Crypto
}

// Compile-time check
var _ interfaces.DiskIO = (*Layer)(nil)

// New creates a layer over disk for the byte range [start, end). A nil
// crypto means the partition is stored in plaintext.
func New(disk interfaces.DiskIO, start, end int64, crypto interfaces.Crypto) (*Layer, error) {
	if disk == nil {
		return nil, fmt.Errorf("disk cannot be nil")
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid partition range [%d, %d)", start, end)
	}
	if crypto != nil && crypto.BlockSize() <= 0 {
		return nil, fmt.Errorf("invalid crypto block size %d", crypto.BlockSize())
	}
	return &Layer{disk: disk, start: start, end: end, crypto: crypto}, nil
}

// Size returns the logical size of the partition
func (l *Layer) Size() int64 {
	return l.end - l.start
}

// Start returns the disk offset of the partition
func (l *Layer) Start() int64 {
	return l.start
}

// Encrypted reports whether reads and writes go through a cipher
func (l *Layer) Encrypted() bool {
	return l.crypto != nil
}

// SectorCount returns the number of whole sectors of sectorSize in the partition
func (l *Layer) SectorCount(sectorSize int64) int64 {
	if sectorSize <= 0 {
		return 0
	}
	return l.Size() / sectorSize
}

// clamp returns how many of size bytes at offset fit in the partition
func (l *Layer) clamp(offset int64, size int) int {
	if offset < 0 || size <= 0 || offset >= l.Size() {
		return 0
	}
	if remaining := l.Size() - offset; int64(size) > remaining {
		return int(remaining)
	}
	return size
}

// padding returns the bytes needed before and after [offset, offset+size)
// to reach cipher block boundaries
func padding(offset int64, size, blockSize int) (before, after int) {
	before = int(offset % int64(blockSize))
	if rem := int((offset + int64(size)) % int64(blockSize)); rem != 0 {
		after = blockSize - rem
	}
	return before, after
}

// ReadBytes reads size bytes at a partition offset. Reads are clamped to the
// partition; a read starting at or past its end returns an empty slice.
func (l *Layer) ReadBytes(offset int64, size int) ([]byte, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative partition offset %d", offset)
	}
	size = l.clamp(offset, size)
	if size == 0 {
		return []byte{}, nil
	}

	if l.crypto == nil {
		return l.disk.ReadBytes(l.start+offset, size)
	}

	blockSize := l.crypto.BlockSize()
	before, after := padding(offset, size, blockSize)
	aligned := offset - int64(before)

	buf, err := l.disk.ReadBytes(l.start+aligned, before+size+after)
	if err != nil {
		return nil, err
	}
	// a dump shorter than its partition table leaves a ragged tail
	if short := len(buf) % blockSize; short != 0 {
		buf = buf[:len(buf)-short]
	}
	if err := l.crypto.Decrypt(buf, aligned); err != nil {
		return nil, fmt.Errorf("failed to decrypt at partition offset %d: %w", aligned, err)
	}

	if len(buf) <= before {
		return []byte{}, nil
	}
	return buf[before:min(before+size, len(buf))], nil
}

// WriteBytes writes data at a partition offset and returns the number of
// bytes of data written. Data past the end of the partition is dropped.
func (l *Layer) WriteBytes(offset int64, data []byte) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative partition offset %d", offset)
	}
	size := l.clamp(offset, len(data))
	if size == 0 {
		return 0, nil
	}
	data = data[:size]

	if l.crypto == nil {
		return l.disk.WriteBytes(l.start+offset, data)
	}

	blockSize := l.crypto.BlockSize()
	before, after := padding(offset, size, blockSize)
	aligned := offset - int64(before)

	buf := make([]byte, 0, before+size+after)
	if before > 0 {
		head, err := l.ReadBytes(aligned, before)
		if err != nil {
			return 0, fmt.Errorf("failed to read leading block: %w", err)
		}
		buf = append(buf, head...)
	}
	buf = append(buf, data...)
	if after > 0 {
		tail, err := l.ReadBytes(offset+int64(size), after)
		if err != nil {
			return 0, fmt.Errorf("failed to read trailing block: %w", err)
		}
		buf = append(buf, tail...)
	}
	if len(buf) != before+size+after {
		return 0, fmt.Errorf("partition offset %d is not backed by whole cipher blocks", aligned)
	}

	if err := l.crypto.Encrypt(buf, aligned); err != nil {
		return 0, fmt.Errorf("failed to encrypt at partition offset %d: %w", aligned, err)
	}

	n, err := l.disk.WriteBytes(l.start+aligned, buf)
	return min(max(n-before, 0), size), err
}
