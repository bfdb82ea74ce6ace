// Package splitter cuts dumps into FAT32 sized parts and joins them back.
package splitter

import (
	"time"

	"github.com/deploymenttheory/go-nxnand/internal/split"
)

// SplitRequest represents a split of one dump file
type SplitRequest struct {
	Source string
	// Archive writes "<name>_split<ext>/NN" instead of "<name>.NN"
	Archive bool
	InPlace bool
	// ChunkSize overrides the configured part size when positive
	ChunkSize int64
}

// MergeRequest represents a merge starting at the first part
type MergeRequest struct {
	FirstPart string
	InPlace   bool
}

// Response reports the outcome of a split or merge
type Response struct {
	Operation string        `json:"operation" yaml:"operation"`
	OK        bool          `json:"ok" yaml:"ok"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Parts     []string      `json:"parts" yaml:"parts"`
	Output    string        `json:"output" yaml:"output"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

func newResponse(op string, r split.Result, started time.Time) *Response {
	resp := &Response{
		Operation: op,
		OK:        r.OK,
		Parts:     r.Parts,
		Output:    r.Output,
		Elapsed:   time.Since(started),
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}
