package probe

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-nxnand/internal/services"
	"github.com/deploymenttheory/go-nxnand/internal/types"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Handle probes the partitions of a dump with the context's keys
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	nand, err := ctx.OpenNand(req.NandPath)
	if err != nil {
		return nil, err
	}
	defer nand.Close()

	results, err := nand.Probe()
	if err != nil {
		return nil, app.Wrap("failed to probe partitions", err)
	}

	if len(req.Partitions) > 0 {
		results, err = filter(results, req.Partitions)
		if err != nil {
			return nil, err
		}
	}

	ctx.Log(fmt.Sprintf("Probed %d partitions of %s", len(results), req.NandPath))
	return &Response{NandPath: req.NandPath, Results: results}, nil
}

func filter(results []services.ProbeResult, names []string) ([]services.ProbeResult, error) {
	var out []services.ProbeResult
	for _, name := range names {
		found := false
		for _, r := range results {
			if strings.EqualFold(r.Partition, name) {
				out = append(out, r)
				found = true
				break
			}
		}
		if !found {
			return nil, app.NewError(app.ErrCodePartitionNotFound, fmt.Sprintf("no partition named %q", name), types.ErrPartitionNotFound)
		}
	}
	return out, nil
}
