package mkfake

import (
	"fmt"

	"github.com/deploymenttheory/go-nxnand/internal/nandgen"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

// Handle writes a synthetic dump with an NX partition table and FAT32 volumes
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	name := req.Layout
	layout := nandgen.CompactLayout()
	switch name {
	case LayoutFull:
		layout = nandgen.DefaultLayout()
	default:
		name = LayoutCompact
	}

	ctx.Log(fmt.Sprintf("Writing %s image to %s", name, req.Output))
	err := nandgen.Create(req.Output, nandgen.Options{
		Layout:     layout,
		Keys:       ctx.Keys,
		Clear:      req.Clear,
		SectorSize: ctx.Config.SectorSize,
		Logger:     ctx.Logger,
	})
	if err != nil {
		return nil, app.Wrap("failed to create image", err)
	}

	return &Response{
		Output:     req.Output,
		Layout:     name,
		Size:       layout.Size(),
		Partitions: len(layout.Partitions),
		Encrypted:  !req.Clear,
	}, nil
}
