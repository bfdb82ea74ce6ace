package files

import (
	"os"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Validate checks that a dump and partition are named
func (t *Target) Validate() error {
	if t.NandPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "NAND path is required", nil)
	}
	if t.Partition == "" {
		return app.NewError(app.ErrCodeInvalidInput, "partition is required", nil)
	}
	return nil
}

// Validate validates a listing request
func (r *ListRequest) Validate() error {
	return r.Target.Validate()
}

// Validate validates an extract request
func (r *ExtractRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.Source == "" {
		return app.NewError(app.ErrCodeInvalidInput, "source path is required", nil)
	}
	if r.Dest == "" {
		return app.NewError(app.ErrCodeInvalidInput, "destination is required", nil)
	}
	return nil
}

// Validate validates an inject request. Every source must exist on the host.
func (r *InjectRequest) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if len(r.Sources) == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "at least one source is required", nil)
	}
	for _, src := range r.Sources {
		if _, err := os.Stat(src); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "cannot read source "+src, err)
		}
	}
	return nil
}
