package splitter

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-nxnand/internal/split"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

func options(ctx *app.Context, inPlace bool, started time.Time, message string) split.Options {
	return split.Options{
		InPlace:    inPlace,
		BufferSize: ctx.Config.BufferSize,
		Logger:     ctx.Logger,
		Progress: func(done, total int64) {
			ctx.Progress(app.ProgressUpdate{
				Message:     message,
				Completed:   done,
				Total:       total,
				StartedAt:   started,
				ElapsedTime: time.Since(started),
			})
		},
	}
}

// Split splits a dump. The chunk size defaults to the configured size of the
// naming scheme.
func Split(ctx *app.Context, req *SplitRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	opts := options(ctx, req.InPlace, started, "splitting")
	opts.Archive = req.Archive
	opts.ChunkSize = req.ChunkSize
	if opts.ChunkSize == 0 {
		opts.ChunkSize = ctx.Config.FlatChunkSize
		if req.Archive {
			opts.ChunkSize = ctx.Config.ArchiveChunkSize
		}
	}

	ctx.Log(fmt.Sprintf("Splitting %s into parts of %s", req.Source, app.FormatBytes(opts.ChunkSize)))
	res := split.Split(ctx, req.Source, opts)
	resp := newResponse("split", res, started)
	if !res.OK {
		return resp, app.Wrap("split failed", res.Err)
	}
	return resp, nil
}

// Merge joins the parts of a split dump
func Merge(ctx *app.Context, req *MergeRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	ctx.Log(fmt.Sprintf("Merging parts starting at %s", req.FirstPart))
	res := split.Merge(ctx, req.FirstPart, options(ctx, req.InPlace, started, "merging"))
	resp := newResponse("merge", res, started)
	if !res.OK {
		return resp, app.Wrap("merge failed", res.Err)
	}
	return resp, nil
}
