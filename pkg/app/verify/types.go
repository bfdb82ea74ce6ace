// Package verify checks the GPT of a dump against its backup and optionally
// rewrites the backup from the primary.
package verify

import (
	"github.com/deploymenttheory/go-nxnand/internal/parsers/gpt"
)

// Request represents a partition table check
type Request struct {
	NandPath string
	// Repair rewrites the backup GPT when the check fails
	Repair bool
}

// Response represents the outcome of the check
type Response struct {
	NandPath string            `json:"nand" yaml:"nand"`
	OK       bool              `json:"ok" yaml:"ok"`
	Problem  string            `json:"problem,omitempty" yaml:"problem,omitempty"`
	Report   *gpt.VerifyReport `json:"report" yaml:"report"`
	// Repaired is set when the backup was rewritten; Report then describes
	// the table after the repair
	Repaired bool `json:"repaired" yaml:"repaired"`
}
