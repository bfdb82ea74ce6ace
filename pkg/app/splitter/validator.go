package splitter

import (
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-nxnand/internal/split"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Validate validates a split request
func (r *SplitRequest) Validate() error {
	if r.Source == "" {
		return app.NewError(app.ErrCodeInvalidInput, "source file is required", nil)
	}
	info, err := os.Stat(r.Source)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "cannot read source", err)
	}
	if info.IsDir() {
		return app.NewError(app.ErrCodeInvalidInput, r.Source+" is a directory", nil)
	}
	if r.ChunkSize < 0 {
		return app.NewError(app.ErrCodeInvalidInput, "chunk size must be positive", nil)
	}
	return nil
}

// Validate validates a merge request
func (r *MergeRequest) Validate() error {
	if r.FirstPart == "" {
		return app.NewError(app.ErrCodeInvalidInput, "first part is required", nil)
	}
	if _, err := split.Parts(r.FirstPart); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid first part "+filepath.Base(r.FirstPart), err)
	}
	return nil
}
