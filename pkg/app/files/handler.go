package files

import (
	"fmt"
	"path"
	"time"

	"github.com/deploymenttheory/go-nxnand/internal/services"
	"github.com/deploymenttheory/go-nxnand/internal/types"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

func mount(ctx *app.Context, t Target, readOnly bool) (*services.NandService, *services.Volume, error) {
	nand, err := ctx.OpenNand(t.NandPath)
	if err != nil {
		return nil, nil, err
	}
	vol, err := nand.Mount(t.Partition, readOnly)
	if err != nil {
		nand.Close()
		return nil, nil, app.Wrap("failed to mount "+t.Partition, err)
	}
	return nand, vol, nil
}

// reporter forwards copy progress to the context
func reporter(ctx *app.Context, started time.Time) services.ProgressFunc {
	return func(p *services.CopyProgress) {
		ctx.Progress(app.ProgressUpdate{
			Message:     path.Base(p.CurrentFile),
			Completed:   p.TotalBytesCopied,
			Total:       p.TotalBytes,
			StartedAt:   started,
			ElapsedTime: time.Since(started),
		})
	}
}

// List lists a directory of a partition
func List(ctx *app.Context, req *ListRequest) (*ListResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	nand, vol, err := mount(ctx, req.Target, true)
	if err != nil {
		return nil, err
	}
	defer nand.Close()
	defer vol.Close()

	dir := req.Path
	if dir == "" {
		dir = "/"
	}
	resp := &ListResponse{Partition: vol.Partition.Name, Label: vol.Label(), Path: dir}

	entry, err := vol.Stat(dir)
	switch {
	case err != nil:
	case !entry.IsDir:
		resp.Entries = []services.FileEntry{*entry}
	case req.Recursive:
		err = vol.Walk(entry.Path, func(e services.FileEntry) error {
			if e.Path != entry.Path {
				resp.Entries = append(resp.Entries, e)
			}
			return nil
		})
	default:
		resp.Entries, err = vol.ReadDir(entry.Path)
	}
	if err != nil {
		return nil, app.Wrap("failed to list "+dir, err)
	}

	if resp.Free, err = vol.Free(); err != nil {
		ctx.Logger.WithError(err).Warn("failed to count free space")
	}
	return resp, nil
}

// Extract copies a file or directory from a partition to the host
func Extract(ctx *app.Context, req *ExtractRequest) (*CopyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	nand, vol, err := mount(ctx, req.Target, true)
	if err != nil {
		return nil, err
	}
	defer nand.Close()
	defer vol.Close()

	started := time.Now()
	ctx.Log(fmt.Sprintf("Extracting %s:%s to %s", vol.Partition.Name, req.Source, req.Dest))
	prog, err := vol.Extract(ctx, req.Source, req.Dest, reporter(ctx, started))
	if err != nil {
		return nil, app.Wrap("failed to extract "+req.Source, err)
	}
	return newCopyResponse(vol.Partition.Name, prog, started), nil
}

// Inject copies host files and directories into a partition
func Inject(ctx *app.Context, req *InjectRequest) (*CopyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if ctx.Config.ReadOnly {
		return nil, app.NewError(app.ErrCodeReadOnly, "writes are disabled by the read_only setting", types.ErrReadOnly)
	}
	nand, vol, err := mount(ctx, req.Target, false)
	if err != nil {
		return nil, err
	}
	defer nand.Close()
	defer vol.Close()

	dest := req.Dest
	if dest == "" {
		dest = "/"
	}
	started := time.Now()
	ctx.Log(fmt.Sprintf("Copying %d sources into %s:%s", len(req.Sources), vol.Partition.Name, dest))
	prog, err := vol.Inject(ctx, req.Sources, dest, req.Overwrite, reporter(ctx, started))
	if err != nil {
		return nil, app.Wrap("failed to copy into "+vol.Partition.Name, err)
	}
	return newCopyResponse(vol.Partition.Name, prog, started), nil
}
