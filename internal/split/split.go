// File: internal/split/split.go
// Package split cuts large dump files into numbered parts and joins them back.
//
// Two naming schemes are supported. Flat parts sit next to the source as
// "rawnand.bin.00", "rawnand.bin.01", ... Archive parts go into a directory
// named after the source, "rawnand_split.bin/00", which FAT32 media tools
// treat as a single large file when the directory has the archive bit set.
package split

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/stream"
)

const (
	// ArchiveChunkSize is the largest part that fits a FAT32 file
	ArchiveChunkSize int64 = 0xFFFF0000
	// FlatChunkSize is the part size of dumps written by console backup tools
	FlatChunkSize int64 = 0x80000000
	// maxParts is the number of two digit suffixes
	maxParts = 100
)

// Options controls Split and Merge
type Options struct {
	// Archive writes parts into a "<name>_split<ext>" directory as 00, 01, ...
	Archive bool
	// InPlace truncates the source while splitting, or deletes the parts
	// while merging, so the operation needs little extra space
	InPlace bool
	// ChunkSize is the part size, zero for the default of the naming scheme
	ChunkSize int64
	// BufferSize bounds the memory used per copy step
	BufferSize int
	// Progress is called after each copied chunk with bytes done and the total
	Progress stream.Progress
	Logger   logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// DefaultChunkSize returns the part size used when Options.ChunkSize is zero
func DefaultChunkSize(archive bool) int64 {
	if archive {
		return ArchiveChunkSize
	}
	return FlatChunkSize
}

// Result reports the outcome of Split or Merge. Failures are values, never
// panics or returned errors, so batch callers can report what completed.
type Result struct {
	OK  bool  `json:"ok" yaml:"ok"`
	Err error `json:"-" yaml:"-"`
	// Parts lists the part files written by Split or read by Merge, in order
	Parts []string `json:"parts,omitempty" yaml:"parts,omitempty"`
	// Output is the directory holding the parts after Split, or the merged
	// file after Merge
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Description is a one line summary suitable for display
func (r Result) Description() string {
	if r.OK {
		return fmt.Sprintf("%d parts, output %s", len(r.Parts), r.Output)
	}
	if r.Err == nil {
		return "failed"
	}
	return r.Err.Error()
}

func failure(parts []string, format string, args ...any) Result {
	return Result{Err: fmt.Errorf(format, args...), Parts: parts}
}

// PartPath returns the path of part index for a source file
func PartPath(source string, archive bool, index int) string {
	suffix := fmt.Sprintf("%02d", index)
	if !archive {
		return source + "." + suffix
	}

	dir, base := filepath.Split(source)
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return filepath.Join(dir, base+"_split", suffix)
	}
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"_split"+ext, suffix)
}

// Split divides source into parts of ChunkSize bytes, writing the last part
// first. In copy mode the source is left untouched. In place mode the source
// is truncated after each part and finally renamed to part 00, so at most one
// part of extra space is needed at any time.
//
// A file whose size is an exact multiple of the chunk size produces no empty
// trailing part. An empty file produces one empty part 00.
func Split(ctx context.Context, source string, opts Options) Result {
	logger := opts.logger().WithField("source", source)

	chunk := opts.ChunkSize
	if chunk == 0 {
		chunk = DefaultChunkSize(opts.Archive)
	}
	if chunk < 0 {
		return failure(nil, "failed to split file: invalid chunk size %d", chunk)
	}

	flag := os.O_RDONLY
	if opts.InPlace {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(source, flag, 0)
	if err != nil {
		return failure(nil, "failed to split file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return failure(nil, "failed to split file: %w", err)
	}
	size := info.Size()

	index := size / chunk
	if index > 0 && index*chunk == size {
		index--
	}
	if index >= maxParts {
		return failure(nil, "failed to split file: %d bytes in chunks of %d needs more than %d parts", size, chunk, maxParts)
	}
	offset := index * chunk

	var done int64
	progress := func(n, _ int64) {
		if opts.Progress != nil {
			opts.Progress(done+n, size)
		}
	}

	limit := int64(-1)
	if opts.InPlace {
		limit = 0
	}

	var parts []string
	for ; offset > limit; offset, index = offset-chunk, index-1 {
		if err := ctx.Err(); err != nil {
			return failure(parts, "failed to split file: %w", err)
		}

		partPath := PartPath(source, opts.Archive, int(index))
		length := min(chunk, size-offset)
		logger.WithFields(logrus.Fields{"part": partPath, "offset": offset, "length": length}).Info("creating part")

		if err := writePart(ctx, f, offset, length, partPath, opts.BufferSize, progress); err != nil {
			return failure(parts, "failed to split file: %w", err)
		}
		done += length

		if opts.InPlace {
			if err := f.Truncate(offset); err != nil {
				return failure(parts, "failed to split file: truncate to %d: %w", offset, err)
			}
		}
		parts = append([]string{partPath}, parts...)
	}

	if opts.InPlace {
		if err := f.Close(); err != nil {
			return failure(parts, "failed to split file: %w", err)
		}
		partPath := PartPath(source, opts.Archive, 0)
		logger.WithField("part", partPath).Info("renaming source to first part")
		if err := os.MkdirAll(filepath.Dir(partPath), 0o755); err != nil {
			return failure(parts, "failed to split file: %w", err)
		}
		if err := os.Rename(source, partPath); err != nil {
			return failure(parts, "failed to split file: %w", err)
		}
		parts = append([]string{partPath}, parts...)
		progress(size-done, size)
	}

	return Result{OK: true, Parts: parts, Output: filepath.Dir(parts[0])}
}

// writePart copies length bytes at offset of src into a new file
func writePart(ctx context.Context, src *os.File, offset, length int64, partPath string, bufSize int, progress stream.Progress) error {
	if err := os.MkdirAll(filepath.Dir(partPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(partPath)
	if err != nil {
		return err
	}

	_, err = stream.Copy(ctx, dst, io.NewSectionReader(src, offset, length), length, bufSize, progress)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	return err
}
