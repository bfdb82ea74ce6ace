package gpt

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	log "github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// VerifyReport is the result of checking the primary GPT against its backup
type VerifyReport struct {
	PrimaryHeaderValid bool   `json:"primary_header_valid" yaml:"primary_header_valid"`
	PrimaryTableValid  bool   `json:"primary_table_valid" yaml:"primary_table_valid"`
	BackupReadable     bool   `json:"backup_readable" yaml:"backup_readable"`
	BackupError        string `json:"backup_error,omitempty" yaml:"backup_error,omitempty"`
	BackupHeaderValid  bool   `json:"backup_header_valid" yaml:"backup_header_valid"`
	BackupTableValid   bool   `json:"backup_table_valid" yaml:"backup_table_valid"`
	TablesMatch        bool   `json:"tables_match" yaml:"tables_match"`
	HeadersMirrored    bool   `json:"headers_mirrored" yaml:"headers_mirrored"`
}

// OK reports whether both tables are intact and consistent
func (v *VerifyReport) OK() bool {
	return v.Problem() == ""
}

// Problem describes the first failed check, or returns "" when all pass
func (v *VerifyReport) Problem() string {
	switch {
	case !v.PrimaryHeaderValid:
		return "the primary GPT header is invalid"
	case !v.PrimaryTableValid:
		return "the primary GPT table is invalid"
	case !v.BackupReadable:
		return "failed to parse backup GPT table: " + v.BackupError
	case !v.BackupHeaderValid:
		return "the backup GPT header is invalid"
	case !v.BackupTableValid:
		return "the backup GPT table is invalid"
	case !v.TablesMatch:
		return "the primary and backup GPT tables don't match"
	case !v.HeadersMirrored:
		return "the primary and backup GPT headers do not point at each other"
	}
	return ""
}

// Verify checks CRCs of the primary and backup GPT and that they agree.
// An error is returned only when the primary table cannot be parsed.
func Verify(r interfaces.DiskReader) (*VerifyReport, error) {
	primary, err := ReadPrimary(r)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		PrimaryHeaderValid: HeaderValid(primary),
		PrimaryTableValid:  TableValid(primary),
	}

	backup, err := ReadBackup(r, primary)
	if err != nil {
		log.WithError(err).Warn("backup GPT could not be read")
		report.BackupError = err.Error()
		return report, nil
	}
	report.BackupReadable = true
	report.BackupHeaderValid = HeaderValid(backup)
	report.BackupTableValid = TableValid(backup)
	report.TablesMatch = primary.Header.EntryArrayCRC32 == backup.Header.EntryArrayCRC32
	report.HeadersMirrored = backup.Header.CurrentLBA == primary.Header.BackupLBA &&
		backup.Header.BackupLBA == primary.Header.CurrentLBA &&
		backup.Header.HeaderCRC32 != primary.Header.HeaderCRC32

	return report, nil
}

// BuildBackup returns the bytes of the backup region, entry array followed by
// header, rebuilt from a primary table. The region starts at BackupLBA-32.
func BuildBackup(primary *types.GptTable) ([]byte, error) {
	blockSize := primary.BlockSize
	h := primary.Header

	if h.BackupLBA < backupTableBlocks {
		return nil, fmt.Errorf("%w: backup LBA %d is too small", types.ErrInvalidFormat, h.BackupLBA)
	}
	if int64(len(primary.RawEntries)) > backupTableBlocks*blockSize {
		return nil, fmt.Errorf("entry array of %d bytes does not fit the backup region", len(primary.RawEntries))
	}
	if int64(len(primary.RawHeader)) < int64(h.HeaderSize) {
		return nil, fmt.Errorf("primary header bytes are missing")
	}

	region := make([]byte, (backupTableBlocks+1)*blockSize)
	copy(region, primary.RawEntries)

	header := region[backupTableBlocks*blockSize:]
	copy(header, primary.RawHeader[:min(int64(len(primary.RawHeader)), blockSize)])
	binary.LittleEndian.PutUint64(header[24:32], h.BackupLBA)
	binary.LittleEndian.PutUint64(header[32:40], h.CurrentLBA)
	binary.LittleEndian.PutUint64(header[72:80], h.BackupLBA-backupTableBlocks)
	binary.LittleEndian.PutUint32(header[88:92], crc32.ChecksumIEEE(primary.RawEntries))
	binary.LittleEndian.PutUint32(header[16:20], headerChecksum(header, h.HeaderSize))

	return region, nil
}

// RepairBackup overwrites the backup GPT with one rebuilt from the primary.
// The primary must pass its own CRC checks.
func RepairBackup(w interfaces.DiskIO, primary *types.GptTable) error {
	if !HeaderValid(primary) || !TableValid(primary) {
		return fmt.Errorf("%w: primary GPT fails its CRC checks, refusing to copy it", types.ErrInvalidFormat)
	}

	region, err := BuildBackup(primary)
	if err != nil {
		return err
	}

	offset := int64(primary.Header.BackupLBA-backupTableBlocks) * primary.BlockSize
	n, err := w.WriteBytes(offset, region)
	if err != nil {
		return fmt.Errorf("failed to write backup GPT: %w", err)
	}
	if n != len(region) {
		return fmt.Errorf("short write of backup GPT: wrote %d of %d bytes", n, len(region))
	}

	log.WithFields(log.Fields{
		"backup_lba": primary.Header.BackupLBA,
		"offset":     offset,
	}).Info("rewrote backup GPT from primary")
	return nil
}
