// Package probe checks which BIS keys decrypt which partitions by comparing
// each partition's magic bytes.
package probe

import (
	"github.com/deploymenttheory/go-nxnand/internal/services"
)

// Request represents a key probe request
type Request struct {
	NandPath string
	// Partitions limits the probe to these names, empty for all
	Partitions []string
}

// Response represents the probe results
type Response struct {
	NandPath string                 `json:"nand" yaml:"nand"`
	Results  []services.ProbeResult `json:"results" yaml:"results"`
}

// Failed reports whether any partition showed a key mismatch or a read error
func (r *Response) Failed() bool {
	for _, res := range r.Results {
		if res.Status == services.ProbeMismatch || res.Status == services.ProbeError {
			return true
		}
	}
	return false
}
