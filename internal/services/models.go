package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// PartitionInfo describes a GPT partition together with its NX metadata
type PartitionInfo struct {
	Index      int                   `json:"index" yaml:"index"`
	Name       string                `json:"name" yaml:"name"`
	TypeGUID   uuid.UUID             `json:"type_guid" yaml:"type_guid"`
	UniqueGUID uuid.UUID             `json:"unique_guid" yaml:"unique_guid"`
	FirstLBA   uint64                `json:"first_lba" yaml:"first_lba"`
	LastLBA    uint64                `json:"last_lba" yaml:"last_lba"`
	Offset     int64                 `json:"offset" yaml:"offset"`
	Size       int64                 `json:"size" yaml:"size"`
	Known      bool                  `json:"known" yaml:"known"`
	Format     types.PartitionFormat `json:"format" yaml:"format"`
	BisKeyID   types.BisKeyID        `json:"bis_key" yaml:"bis_key"`
	Mountable  bool                  `json:"mountable" yaml:"mountable"`
	// Free is only set when free space was requested and the volume mounted
	Free *int64 `json:"free,omitempty" yaml:"free,omitempty"`

	meta types.NxPartitionMeta
}

// Meta returns the NX metadata of the partition type
func (p PartitionInfo) Meta() types.NxPartitionMeta {
	return p.meta
}

// ProbeStatus is the outcome of a magic probe
type ProbeStatus string

const (
	// ProbeClear means the magic was found without decryption
	ProbeClear ProbeStatus = "clear"
	// ProbeDecrypted means the magic was found after decryption
	ProbeDecrypted ProbeStatus = "decrypted"
	// ProbeMismatch means the decrypted bytes did not match, usually the wrong key
	ProbeMismatch ProbeStatus = "mismatch"
	// ProbeMissingKey means the partition is encrypted and no key was supplied
	ProbeMissingKey ProbeStatus = "missing-key"
	// ProbeNotApplicable means the partition defines no magic
	ProbeNotApplicable ProbeStatus = "n/a"
	// ProbeError means reading the partition failed
	ProbeError ProbeStatus = "error"
)

// ProbeResult reports the magic probe of one partition
type ProbeResult struct {
	Partition string         `json:"partition" yaml:"partition"`
	BisKeyID  types.BisKeyID `json:"bis_key" yaml:"bis_key"`
	Status    ProbeStatus    `json:"status" yaml:"status"`
	Detail    string         `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// FileEntry represents a file or directory entry on a mounted volume
type FileEntry struct {
	Name      string    `json:"name" yaml:"name"`
	ShortName string    `json:"short_name,omitempty" yaml:"short_name,omitempty"`
	Path      string    `json:"path" yaml:"path"`
	IsDir     bool      `json:"is_dir" yaml:"is_dir"`
	Size      int64     `json:"size" yaml:"size"`
	Modified  time.Time `json:"modified" yaml:"modified"`
}

// CopyProgress is reported while files are copied in or out of a volume
type CopyProgress struct {
	CurrentFile       string
	CurrentFileSize   int64
	CurrentFileOffset int64

	TotalBytes       int64
	TotalBytesCopied int64

	TotalFiles       int
	TotalFilesCopied int

	TotalDirectories       int
	TotalDirectoriesCopied int
}

// ProgressFunc receives copy progress. The value is reused between calls.
type ProgressFunc func(*CopyProgress)
