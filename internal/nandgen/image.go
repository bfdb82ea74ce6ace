// File: internal/nandgen/image.go
// Package nandgen writes synthetic NAND dumps: a protective MBR, a primary and
// backup GPT, and FAT32 volumes encrypted with caller supplied BIS keys.
package nandgen

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diskfs/go-diskfs/filesystem/fat32"
	diskgpt "github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/crypto"
	"github.com/deploymenttheory/go-nxnand/internal/disk"
	"github.com/deploymenttheory/go-nxnand/internal/fatio"
	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
	"github.com/deploymenttheory/go-nxnand/internal/parsers/gpt"
	"github.com/deploymenttheory/go-nxnand/internal/partio"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// prodInfoMagic opens the calibration blob stored in PRODINFO
var prodInfoMagic = []byte("CAL0")

// Options controls image generation
type Options struct {
	Layout Layout
	// Keys encrypt each partition with its BIS slot. Required unless Clear.
	Keys types.BisKeys
	// Clear stores every partition in plaintext
	Clear bool
	// SectorSize of the NAND cipher, zero for crypto.DefaultSectorSize
	SectorSize int64
	Logger     logrus.FieldLogger
}

// Create writes a new image to path, replacing any existing file
func Create(path string, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if opts.SectorSize == 0 {
		opts.SectorSize = crypto.DefaultSectorSize
	}
	if err := opts.Layout.Validate(); err != nil {
		return err
	}

	if err := writePartitionTable(path, opts.Layout); err != nil {
		return err
	}

	d, err := disk.Open(path)
	if err != nil {
		return err
	}
	defer d.Close()

	for _, spec := range opts.Layout.Partitions {
		meta, ok := gpt.LookupNx(spec.Type)
		if !ok {
			continue
		}
		plog := logger.WithField("partition", spec.Name)

		if meta.Format == types.FormatFat12 {
			plog.Warn("FAT12 volumes cannot be created, leaving partition blank")
			continue
		}
		if meta.Format != types.FormatFat32 && !meta.HasMagic() {
			continue
		}

		layer, err := openLayer(d, spec, meta, opts)
		if err != nil {
			return err
		}

		switch meta.Format {
		case types.FormatFat32:
			plog.Info("formatting FAT32")
			if err := formatFat32(layer); err != nil {
				return fmt.Errorf("failed to format %s: %w", spec.Name, err)
			}
		default:
			plog.Debug("writing magic")
			if _, err := layer.WriteBytes(meta.MagicOffset, prodInfoMagic); err != nil {
				return fmt.Errorf("failed to write %s magic: %w", spec.Name, err)
			}
		}
	}

	return d.Sync()
}

func writePartitionTable(path string, layout Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer f.Close()

	if err := f.Truncate(layout.Size()); err != nil {
		return fmt.Errorf("failed to size image: %w", err)
	}

	table := &diskgpt.Table{
		LogicalSectorSize:  types.LBASize,
		PhysicalSectorSize: types.LBASize,
		ProtectiveMBR:      true,
		GUID:               strings.ToUpper(layout.DiskGUID.String()),
	}
	for _, p := range layout.Partitions {
		table.Partitions = append(table.Partitions, &diskgpt.Partition{
			Start:      p.FirstLBA,
			End:        p.LastLBA,
			Type:       diskgpt.Type(strings.ToUpper(p.Type.String())),
			Name:       p.Name,
			GUID:       strings.ToUpper(p.GUID.String()),
			Attributes: p.Attributes,
		})
	}

	if err := table.Write(f, layout.Size()); err != nil {
		return fmt.Errorf("failed to write partition table: %w", err)
	}
	return f.Close()
}

func openLayer(d interfaces.DiskIO, spec PartitionSpec, meta types.NxPartitionMeta, opts Options) (*partio.Layer, error) {
	var c interfaces.Crypto
	if meta.Encrypted() && !opts.Clear {
		key, ok := opts.Keys.Get(meta.BisKeyID)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs %s", types.ErrMissingKey, spec.Name, meta.BisKeyID)
		}
		adapter, err := crypto.NewAdapter(key, opts.SectorSize)
		if err != nil {
			return nil, err
		}
		c = adapter
	}

	start := int64(spec.FirstLBA) * types.LBASize
	end := int64(spec.LastLBA+1) * types.LBASize
	return partio.New(d, start, end, c)
}

func formatFat32(layer *partio.Layer) error {
	dev, err := fatio.New(layer, fatio.Options{SectorSize: fatio.DefaultSectorSize})
	if err != nil {
		return err
	}
	f := fatio.NewFile(dev)
	_, err = fat32.Create(f, f.Size(), 0, fatio.DefaultSectorSize, "")
	return err
}
