package partitions

import (
	"fmt"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Handle lists the GPT partitions of a dump
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	nand, err := ctx.OpenNand(req.NandPath)
	if err != nil {
		return nil, err
	}
	defer nand.Close()

	ctx.Log(fmt.Sprintf("Reading partition table of %s", req.NandPath))
	parts, err := nand.ListPartitions(req.WithFree)
	if err != nil {
		return nil, app.Wrap("failed to list partitions", err)
	}

	return &Response{
		NandPath:   req.NandPath,
		Size:       nand.Disk().Size(),
		Partitions: parts,
	}, nil
}
