// Package files lists, extracts and injects files on the FAT32 partitions of
// a NAND dump.
package files

import (
	"time"

	"github.com/deploymenttheory/go-nxnand/internal/services"
)

// Target selects a partition of a dump
type Target struct {
	NandPath  string
	Partition string
}

// ListRequest represents a directory listing request
type ListRequest struct {
	Target
	Path      string
	Recursive bool
}

// ListResponse represents a directory listing
type ListResponse struct {
	Partition string               `json:"partition" yaml:"partition"`
	Label     string               `json:"label" yaml:"label"`
	Path      string               `json:"path" yaml:"path"`
	Entries   []services.FileEntry `json:"entries" yaml:"entries"`
	Free      int64                `json:"free" yaml:"free"`
}

// ExtractRequest copies a file or directory out of a partition
type ExtractRequest struct {
	Target
	Source string
	Dest   string
}

// InjectRequest copies host files and directories into a partition
type InjectRequest struct {
	Target
	Sources   []string
	Dest      string
	Overwrite bool
}

// CopyResponse reports a finished copy
type CopyResponse struct {
	Partition   string        `json:"partition" yaml:"partition"`
	Files       int           `json:"files" yaml:"files"`
	Directories int           `json:"directories" yaml:"directories"`
	Bytes       int64         `json:"bytes" yaml:"bytes"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
}

func newCopyResponse(partition string, p *services.CopyProgress, started time.Time) *CopyResponse {
	return &CopyResponse{
		Partition:   partition,
		Files:       p.TotalFilesCopied,
		Directories: p.TotalDirectoriesCopied,
		Bytes:       p.TotalBytesCopied,
		Elapsed:     time.Since(started),
	}
}
