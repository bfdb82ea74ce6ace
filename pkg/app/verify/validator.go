package verify

import (
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Validate validates a partition table check request
func (r *Request) Validate() error {
	if r.NandPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "NAND path is required", nil)
	}
	return nil
}
