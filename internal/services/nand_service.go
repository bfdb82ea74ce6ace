// File: internal/services/nand_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/crypto"
	"github.com/deploymenttheory/go-nxnand/internal/disk"
	"github.com/deploymenttheory/go-nxnand/internal/fatio"
	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/parsers/gpt"
	"github.com/deploymenttheory/go-nxnand/internal/partio"
	"github.com/deploymenttheory/go-nxnand/internal/stream"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// Options configures a NandService
type Options struct {
	// Keys decrypt BIS partitions. Unset slots leave those partitions unreadable.
	Keys types.BisKeys
	// SectorSize of the NAND cipher, zero for crypto.DefaultSectorSize
	SectorSize int64
	// BufferSize bounds each step of a file copy, zero for stream.DefaultBufferSize
	BufferSize int
	Logger     logrus.FieldLogger
}

// NandService opens partitions of a NAND dump
type NandService struct {
	disk   interfaces.VirtualDisk
	keys   types.BisKeys
	sector int64
	buffer int
	logger logrus.FieldLogger
}

// NewNandService creates a service over an open virtual disk. The service
// owns the disk and closes it in Close.
func NewNandService(d interfaces.VirtualDisk, opts Options) (*NandService, error) {
	if d == nil {
		return nil, fmt.Errorf("disk cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	sector := opts.SectorSize
	if sector == 0 {
		sector = crypto.DefaultSectorSize
	}
	buffer := opts.BufferSize
	if buffer <= 0 {
		buffer = stream.DefaultBufferSize
	}

	return &NandService{
		disk:   d,
		keys:   opts.Keys,
		sector: sector,
		buffer: buffer,
		logger: logger,
	}, nil
}

// OpenNand opens a combined or split dump at path
func OpenNand(path string, opts Options) (*NandService, error) {
	d, err := disk.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewNandService(d, opts)
	if err != nil {
		d.Close()
		return nil, err
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.WithField("nand", path)
	}
	return s, nil
}

// Close releases the backing files
func (s *NandService) Close() error {
	return s.disk.Close()
}

// Disk returns the virtual disk
func (s *NandService) Disk() interfaces.VirtualDisk {
	return s.disk
}

// PartitionTable reads the primary GPT
func (s *NandService) PartitionTable() (*types.GptTable, error) {
	table, err := gpt.ReadPrimary(s.disk)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition table: %w", err)
	}
	return table, nil
}

func newPartitionInfo(index int, p types.Partition, blockSize int64) PartitionInfo {
	meta, known := gpt.LookupNx(p.TypeGUID)
	name := p.Name
	if name == "" {
		name = meta.Name
	}
	return PartitionInfo{
		Index:      index,
		Name:       name,
		TypeGUID:   p.TypeGUID,
		UniqueGUID: p.UniqueGUID,
		FirstLBA:   p.FirstLBA,
		LastLBA:    p.LastLBA,
		Offset:     p.Offset(blockSize),
		Size:       p.Size(blockSize),
		Known:      known,
		Format:     meta.Format,
		BisKeyID:   meta.BisKeyID,
		Mountable:  meta.Format == types.FormatFat32,
		meta:       meta,
	}
}

// ListPartitions returns every partition of the primary GPT. With withFree
// each mountable partition is mounted read-only to count its free space;
// partitions that fail to mount are logged and listed without it.
func (s *NandService) ListPartitions(withFree bool) ([]PartitionInfo, error) {
	table, err := s.PartitionTable()
	if err != nil {
		return nil, err
	}

	infos := make([]PartitionInfo, 0, len(table.Partitions))
	for i, p := range table.Partitions {
		info := newPartitionInfo(i, p, table.BlockSize)
		if withFree && info.Mountable {
			vol, err := s.mount(info, true)
			if err == nil {
				var free int64
				free, err = vol.Free()
				if err == nil {
					info.Free = &free
				}
			}
			if err != nil {
				s.logger.WithError(err).WithField("partition", info.Name).Warn("failed to detect free space")
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// FindPartition looks a partition up by name, ignoring case
func (s *NandService) FindPartition(name string) (PartitionInfo, error) {
	table, err := s.PartitionTable()
	if err != nil {
		return PartitionInfo{}, err
	}
	if p, ok := gpt.FindPartition(table, name); ok {
		for i := range table.Partitions {
			if table.Partitions[i] == p {
				return newPartitionInfo(i, p, table.BlockSize), nil
			}
		}
	}
	return PartitionInfo{}, fmt.Errorf("%w: %q", types.ErrPartitionNotFound, name)
}

// isClearText checks the magic on the raw disk. Dumps decrypted by other
// tools carry the magic in the clear and must not be decrypted again.
func (s *NandService) isClearText(p PartitionInfo) bool {
	meta := p.meta
	if !meta.HasMagic() || meta.MagicOffset+int64(len(meta.Magic)) > p.Size {
		return false
	}
	raw, err := s.disk.ReadBytes(p.Offset+meta.MagicOffset, len(meta.Magic))
	if err != nil {
		return false
	}
	return bytes.Equal(raw, meta.Magic)
}

// cipherFor returns the crypto for a partition, nil when it is stored in plaintext
func (s *NandService) cipherFor(p PartitionInfo) (interfaces.Crypto, error) {
	if !p.meta.Encrypted() || s.isClearText(p) {
		return nil, nil
	}
	key, ok := s.keys.Get(p.meta.BisKeyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s needs %s", types.ErrMissingKey, p.Name, p.meta.BisKeyID)
	}
	return crypto.NewAdapter(key, s.sector)
}

// OpenLayer returns the partition IO layer of a partition, decrypting with
// its BIS key unless the partition is stored in the clear
func (s *NandService) OpenLayer(p PartitionInfo) (*partio.Layer, error) {
	c, err := s.cipherFor(p)
	if err != nil {
		return nil, err
	}
	return partio.New(s.disk, p.Offset, p.Offset+p.Size, c)
}

// checkMagic compares the magic through the layer. A match only shows the
// key is very likely right; it does not authenticate the data.
func checkMagic(layer *partio.Layer, meta types.NxPartitionMeta) error {
	if !meta.HasMagic() {
		return nil
	}
	data, err := layer.ReadBytes(meta.MagicOffset, len(meta.Magic))
	if err != nil {
		return err
	}
	if !bytes.Equal(data, meta.Magic) {
		return fmt.Errorf("%w: expected %q at 0x%x, got %q", types.ErrKeyMismatch, meta.Magic, meta.MagicOffset, data)
	}
	return nil
}

// Probe runs the magic check on every partition with the configured keys
func (s *NandService) Probe() ([]ProbeResult, error) {
	table, err := s.PartitionTable()
	if err != nil {
		return nil, err
	}

	results := make([]ProbeResult, 0, len(table.Partitions))
	for i, p := range table.Partitions {
		info := newPartitionInfo(i, p, table.BlockSize)
		results = append(results, s.probe(info))
	}
	return results, nil
}

func (s *NandService) probe(p PartitionInfo) ProbeResult {
	res := ProbeResult{Partition: p.Name, BisKeyID: p.meta.BisKeyID}
	switch {
	case !p.Known:
		res.Status, res.Detail = ProbeNotApplicable, "unknown partition type "+p.TypeGUID.String()
		return res
	case !p.meta.HasMagic():
		res.Status = ProbeNotApplicable
		return res
	case s.isClearText(p):
		res.Status = ProbeClear
		return res
	}

	layer, err := s.OpenLayer(p)
	switch {
	case errors.Is(err, types.ErrMissingKey):
		res.Status = ProbeMissingKey
		return res
	case err != nil:
		res.Status, res.Detail = ProbeError, err.Error()
		return res
	}

	err = checkMagic(layer, p.meta)
	switch {
	case err == nil:
		res.Status = ProbeDecrypted
	case errors.Is(err, types.ErrKeyMismatch):
		res.Status = ProbeMismatch
	default:
		res.Status, res.Detail = ProbeError, err.Error()
	}
	s.logger.WithFields(logrus.Fields{"partition": p.Name, "status": res.Status}).Debug("probed partition")
	return res
}

// Mount opens the FAT filesystem of a partition. A read-only volume rejects
// every write with types.ErrReadOnly.
func (s *NandService) Mount(name string, readOnly bool) (*Volume, error) {
	p, err := s.FindPartition(name)
	if err != nil {
		return nil, err
	}
	return s.mount(p, readOnly)
}

func (s *NandService) mount(p PartitionInfo, readOnly bool) (*Volume, error) {
	if !p.Format.IsFAT() {
		return nil, fmt.Errorf("%w: cannot mount %s", types.ErrUnsupportedFormat, p.Name)
	}

	layer, err := s.OpenLayer(p)
	if err != nil {
		return nil, err
	}
	if err := checkMagic(layer, p.meta); err != nil {
		return nil, fmt.Errorf("failed to decrypt %s, check the BIS keys: %w", p.Name, err)
	}
	if p.Format == types.FormatFat12 {
		return nil, fmt.Errorf("%w: %s is FAT12, only FAT32 volumes can be mounted", types.ErrUnsupportedFormat, p.Name)
	}

	boot, err := fatio.ReadBootSector(layer)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", p.Name, err)
	}
	dev, err := fatio.New(layer, fatio.Options{
		ReadOnly:   readOnly,
		SectorSize: int64(boot.BytesPerSector),
		Syncer:     s.disk,
	})
	if err != nil {
		return nil, err
	}
	file := fatio.NewFile(dev)
	fs, err := fat32.Read(file, file.Size(), 0, int64(boot.BytesPerSector))
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", p.Name, err)
	}

	s.logger.WithFields(logrus.Fields{
		"partition": p.Name,
		"read_only": readOnly,
		"encrypted": layer.Encrypted(),
	}).Info("mounted partition")

	return &Volume{
		Partition: p,
		layer:     layer,
		dev:       dev,
		fs:        fs,
		boot:      boot,
		bufSize:   s.buffer,
		logger:    s.logger.WithField("partition", p.Name),
	}, nil
}

// VerifyPartitionTable checks the primary and backup GPT
func (s *NandService) VerifyPartitionTable() (*gpt.VerifyReport, error) {
	report, err := gpt.Verify(s.disk)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition table: %w", err)
	}
	return report, nil
}

// RepairBackupPartitionTable rewrites the backup GPT from the primary
func (s *NandService) RepairBackupPartitionTable() error {
	primary, err := s.PartitionTable()
	if err != nil {
		return err
	}
	if err := gpt.RepairBackup(s.disk, primary); err != nil {
		return fmt.Errorf("failed to write backup GPT table: %w", err)
	}
	s.logger.Info("backup GPT rewritten from primary")
	return s.disk.Sync()
}
