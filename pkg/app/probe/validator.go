package probe

import (
	"strings"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Validate validates a key probe request
func (r *Request) Validate() error {
	if r.NandPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "NAND path is required", nil)
	}
	for _, name := range r.Partitions {
		if strings.TrimSpace(name) == "" {
			return app.NewError(app.ErrCodeInvalidInput, "partition names cannot be empty", nil)
		}
	}
	return nil
}
