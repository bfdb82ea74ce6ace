package mkfake

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Validate validates an image generation request
func (r *Request) Validate() error {
	if r.Output == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output path is required", nil)
	}
	switch r.Layout {
	case "", LayoutCompact, LayoutFull:
	default:
		return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("unknown layout %q, use %s or %s", r.Layout, LayoutCompact, LayoutFull), nil)
	}
	if _, err := os.Stat(r.Output); err == nil && !r.Force {
		return app.NewError(app.ErrCodeExists, r.Output+" already exists, use --force to replace it", nil)
	}
	return nil
}
