// File: internal/interfaces/disk_io.go
package interfaces

import "io"

// DiskReader reads byte ranges from a disk or partition.
// Reads past the end are truncated, never an error.
type DiskReader interface {
	// ReadBytes reads up to length bytes at offset
	ReadBytes(offset int64, length int) ([]byte, error)

	// Size returns the total addressable size in bytes
	Size() int64
}

// DiskWriter writes byte ranges to a disk or partition.
// Writes past the end are truncated and the returned count reflects what was written.
type DiskWriter interface {
	// WriteBytes writes data at offset and returns the number of bytes written
	WriteBytes(offset int64, data []byte) (int, error)
}

// DiskIO is a byte-addressable read/write device
type DiskIO interface {
	DiskReader
	DiskWriter
}

// VirtualDisk is a DiskIO backed by one or more dump files
type VirtualDisk interface {
	DiskIO

	// Sync flushes any descriptors opened for writing
	Sync() error

	io.Closer
}

// Crypto encrypts and decrypts partition data in place.
// Offsets are partition-relative byte offsets and must be aligned to BlockSize.
type Crypto interface {
	// BlockSize returns the granularity of the cipher in bytes
	BlockSize() int

	// Encrypt encrypts buf in place as if it were stored at offset
	Encrypt(buf []byte, offset int64) error

	// Decrypt decrypts buf in place as if it were read from offset
	Decrypt(buf []byte, offset int64) error
}
