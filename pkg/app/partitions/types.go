package partitions

import (
	"github.com/deploymenttheory/go-nxnand/internal/services"
)

// Request represents a partition listing request
type Request struct {
	NandPath string
	// WithFree mounts every FAT32 partition read-only to report free space
	WithFree bool
}

// Response represents the partitions of a NAND dump
type Response struct {
	NandPath   string                   `json:"nand" yaml:"nand"`
	Size       int64                    `json:"size" yaml:"size"`
	Partitions []services.PartitionInfo `json:"partitions" yaml:"partitions"`
}
