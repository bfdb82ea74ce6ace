package split

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/disk"
	"github.com/deploymenttheory/go-nxnand/internal/stream"
)

var (
	firstPartName   = regexp.MustCompile(`^00$|\.00$`)
	archivePartName = regexp.MustCompile(`^\d\d$`)
)

// MergedPath returns the output path Merge uses for a first part
func MergedPath(firstPart string) string {
	dir, name := filepath.Split(firstPart)
	dir = filepath.Clean(dir)
	if name != "00" {
		return filepath.Join(dir, strings.TrimSuffix(name, ".00"))
	}

	archiveDir := filepath.Base(dir)
	ext := filepath.Ext(archiveDir)
	if ext == "" || ext == archiveDir {
		return filepath.Join(filepath.Dir(dir), archiveDir+"_merged")
	}
	return filepath.Join(filepath.Dir(dir), strings.TrimSuffix(archiveDir, ext)+"_merged"+ext)
}

// Parts lists the parts belonging to firstPart in order
func Parts(firstPart string) ([]string, error) {
	name := filepath.Base(firstPart)
	if !firstPartName.MatchString(name) {
		return nil, fmt.Errorf("%s doesn't appear to be the first part of a split, select 00 or myfile.00", name)
	}

	var parts []string
	if name != "00" {
		found, err := disk.FindSplitParts(firstPart)
		if err != nil {
			return nil, err
		}
		parts = found
	} else {
		dir := filepath.Dir(firstPart)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && archivePartName.MatchString(e.Name()) {
				parts = append(parts, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(parts)
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("no parts found for %s: %w", firstPart, fs.ErrNotExist)
	}
	return parts, nil
}

// Merge concatenates the parts of a split file. firstPart is either
// "name.00" (flat, merged into "name") or ".../00" inside an archive
// directory (merged into "<dir>_merged<ext>" beside the directory). In place
// mode deletes each part once copied and then the archive directory; other
// files left in that directory only produce a warning.
func Merge(ctx context.Context, firstPart string, opts Options) Result {
	logger := opts.logger()

	parts, err := Parts(firstPart)
	if err != nil {
		return failure(nil, "failed to merge file: %w", err)
	}

	var total int64
	for _, p := range parts {
		info, err := os.Stat(p)
		if err != nil {
			return failure(nil, "failed to merge file: %w", err)
		}
		total += info.Size()
	}

	output := MergedPath(firstPart)
	out, err := os.Create(output)
	if err != nil {
		return failure(nil, "failed to merge file: %w", err)
	}
	defer out.Close()

	var done int64
	progress := func(n, _ int64) {
		if opts.Progress != nil {
			opts.Progress(done+n, total)
		}
	}

	var merged []string
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return failure(merged, "failed to merge file: %w", err)
		}
		logger.WithField("part", p).Info("merging part")

		n, err := appendPart(ctx, out, p, opts.BufferSize, progress)
		if err != nil {
			return failure(merged, "failed to merge file: %w", err)
		}
		done += n
		merged = append(merged, p)

		if opts.InPlace {
			if err := os.Remove(p); err != nil {
				return failure(merged, "failed to merge file: %w", err)
			}
		}
	}

	if err := out.Close(); err != nil {
		return failure(merged, "failed to merge file: %w", err)
	}

	if opts.InPlace && filepath.Base(firstPart) == "00" {
		dir := filepath.Dir(firstPart)
		if err := os.Remove(dir); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{"dir": dir}).Warn("archive directory not removed")
		}
	}

	return Result{OK: true, Parts: merged, Output: output}
}

func appendPart(ctx context.Context, out *os.File, partPath string, bufSize int, progress stream.Progress) (int64, error) {
	in, err := os.Open(partPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return stream.Copy(ctx, out, in, -1, bufSize, progress)
}
