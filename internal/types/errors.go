package types

import "errors"

var (
	// ErrInvalidFormat is returned when an MBR or GPT signature is malformed
	ErrInvalidFormat = errors.New("invalid partition table format")

	// ErrKeyMismatch is returned when the magic bytes do not match after decryption
	ErrKeyMismatch = errors.New("partition magic mismatch, wrong or missing key")

	// ErrUnsupportedFormat is returned when a partition does not carry a supported filesystem
	ErrUnsupportedFormat = errors.New("unsupported partition format")

	// ErrReadOnly is returned when writing to a partition mounted read-only
	ErrReadOnly = errors.New("partition is mounted read-only")

	// ErrMissingKey is returned when an encrypted partition is opened without its BIS key
	ErrMissingKey = errors.New("missing BIS key")

	// ErrPartitionNotFound is returned when no partition matches the requested name
	ErrPartitionNotFound = errors.New("partition not found")

	// ErrExists is returned when a copy would replace an existing volume entry
	ErrExists = errors.New("an item already exists with that name")

	// ErrNoSpace is returned when a volume cannot hold the data to be copied
	ErrNoSpace = errors.New("not enough free space in the volume")

	// ErrUnsupportedIoctl is returned for ioctl commands the FAT adapter does not handle
	ErrUnsupportedIoctl = errors.New("unsupported ioctl command")
)
