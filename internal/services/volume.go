package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/diskfs/go-diskfs/filesystem/fat32"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-nxnand/internal/fatio"
	"github.com/deploymenttheory/go-nxnand/internal/partio"
	"github.com/deploymenttheory/go-nxnand/internal/stream"
	"github.com/deploymenttheory/go-nxnand/internal/types"
)

// entryOverhead is the space a directory entry is assumed to take when
// estimating whether a copy fits
const entryOverhead = 512

// Volume is a mounted FAT32 partition. Paths inside the volume use forward
// slashes and are relative to its root.
type Volume struct {
	Partition PartitionInfo

	layer   *partio.Layer
	dev     *fatio.DiskIO
	fs      *fat32.FileSystem
	boot    *fatio.BootSector
	bufSize int
	logger  logrus.FieldLogger
}

func cleanPath(p string) string {
	return path.Clean("/" + filepath.ToSlash(p))
}

// ReadOnly reports whether writes are rejected
func (v *Volume) ReadOnly() bool {
	return v.dev.ReadOnly()
}

// BootSector returns the decoded boot sector
func (v *Volume) BootSector() *fatio.BootSector {
	return v.boot
}

// Label returns the volume label
func (v *Volume) Label() string {
	if label := strings.TrimSpace(v.fs.Label()); label != "" {
		return label
	}
	return v.boot.VolumeLabel
}

// Free returns the unallocated space in bytes
func (v *Volume) Free() (int64, error) {
	return fatio.FreeBytes(v.layer, v.boot)
}

// Sync flushes the backing files through the adapter's CtrlSync
func (v *Volume) Sync() error {
	return v.dev.Ioctl(fatio.CtrlSync, nil)
}

// Close flushes pending writes. The disk stays open.
func (v *Volume) Close() error {
	return v.Sync()
}

// chunkSize rounds the copy buffer up to whole clusters; the FAT driver
// only handles file reads and writes that start on a cluster boundary.
func (v *Volume) chunkSize() int {
	cluster := int(v.boot.ClusterSize())
	if cluster <= 0 {
		return v.bufSize
	}
	return (v.bufSize + cluster - 1) / cluster * cluster
}

// ReadDir lists a directory. The dot entries and the volume label entry of
// the root directory are left out.
func (v *Volume) ReadDir(p string) ([]FileEntry, error) {
	dir, entry, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	if !entry.IsDir {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return v.readDir(dir)
}

// readDir lists a directory given by its stored name
func (v *Volume) readDir(p string) ([]FileEntry, error) {
	infos, err := v.fs.ReadDir(p)
	if err != nil {
		return nil, err
	}

	var label string
	if p == "/" {
		label = strings.TrimSpace(v.fs.Label())
	}

	entries := make([]FileEntry, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}
		if label != "" && !fi.IsDir() && fi.Size() == 0 && name == label {
			continue
		}
		entry := FileEntry{
			Name:     name,
			Path:     path.Join(p, name),
			IsDir:    fi.IsDir(),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
		}
		if fat, ok := fi.(fat32.FileInfo); ok && fat.ShortName() != name {
			entry.ShortName = fat.ShortName()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e *FileEntry) matches(name string) bool {
	return strings.EqualFold(e.Name, name) || (e.ShortName != "" && strings.EqualFold(e.ShortName, name))
}

// resolve maps every component of p onto the name stored on the volume,
// matching without regard to case as FAT does. When part of p does not exist
// the error wraps fs.ErrNotExist and the returned path keeps the missing
// components as given below the deepest existing directory.
func (v *Volume) resolve(p string) (string, *FileEntry, error) {
	p = cleanPath(p)
	cur := &FileEntry{Name: "/", Path: "/", IsDir: true}
	if p == "/" {
		return p, cur, nil
	}

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, name := range parts {
		var next *FileEntry
		if cur.IsDir {
			entries, err := v.readDir(cur.Path)
			if err != nil {
				return p, nil, err
			}
			for j := range entries {
				if entries[j].matches(name) {
					next = &entries[j]
					break
				}
			}
		}
		if next == nil {
			rest := path.Join(append([]string{cur.Path}, parts[i:]...)...)
			return rest, nil, fmt.Errorf("%s: %w", p, fs.ErrNotExist)
		}
		cur = next
	}
	return cur.Path, cur, nil
}

// Stat looks up a single entry. Every path component is matched without
// regard to case; the returned Path carries the stored names.
func (v *Volume) Stat(p string) (*FileEntry, error) {
	_, entry, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Walk calls fn for p and, when p is a directory, everything below it.
// Directories are visited before their contents.
func (v *Volume) Walk(p string, fn func(FileEntry) error) error {
	entry, err := v.Stat(p)
	if err != nil {
		return err
	}
	return v.walk(*entry, fn)
}

func (v *Volume) walk(entry FileEntry, fn func(FileEntry) error) error {
	if err := fn(entry); err != nil {
		return err
	}
	if !entry.IsDir {
		return nil
	}
	children, err := v.readDir(entry.Path)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := v.walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// Mkdir creates a directory and any missing parents
func (v *Volume) Mkdir(p string) error {
	if v.ReadOnly() {
		return fmt.Errorf("mkdir %s: %w", p, types.ErrReadOnly)
	}
	dir, _, err := v.resolve(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := v.fs.Mkdir(dir); err != nil {
		return err
	}
	return v.Sync()
}

func (v *Volume) notify(progress ProgressFunc, p *CopyProgress) {
	if progress != nil {
		progress(p)
	}
}

// Extract copies src out of the volume to dst on the host. Directories are
// copied recursively. When dst is an existing directory the copy is placed
// inside it under the source name.
func (v *Volume) Extract(ctx context.Context, src, dst string, progress ProgressFunc) (*CopyProgress, error) {
	root, err := v.Stat(src)
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(dst); err == nil && st.IsDir() && root.Path != "/" {
		dst = filepath.Join(dst, root.Name)
	}

	type item struct {
		entry FileEntry
		host  string
	}
	var items []item
	prog := &CopyProgress{}
	err = v.walk(*root, func(e FileEntry) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(e.Path, root.Path), "/")
		items = append(items, item{entry: e, host: filepath.Join(dst, filepath.FromSlash(rel))})
		if e.IsDir {
			prog.TotalDirectories++
		} else {
			prog.TotalFiles++
			prog.TotalBytes += e.Size
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return prog, err
		}
		if it.entry.IsDir {
			if err := os.MkdirAll(it.host, 0o755); err != nil {
				return prog, err
			}
			prog.TotalDirectoriesCopied++
			continue
		}
		if err := v.extractFile(ctx, it.entry, it.host, prog, progress); err != nil {
			return prog, fmt.Errorf("failed to extract %s: %w", it.entry.Path, err)
		}
	}
	v.notify(progress, prog)
	return prog, nil
}

func (v *Volume) extractFile(ctx context.Context, e FileEntry, host string, prog *CopyProgress, progress ProgressFunc) error {
	v.logger.WithFields(logrus.Fields{"path": e.Path, "dest": host, "size": e.Size}).Debug("extracting file")

	in, err := v.fs.OpenFile(e.Path, os.O_RDONLY)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return err
	}
	out, err := os.Create(host)
	if err != nil {
		return err
	}

	prog.CurrentFile, prog.CurrentFileSize, prog.CurrentFileOffset = e.Path, e.Size, 0
	base := prog.TotalBytesCopied
	_, err = stream.Copy(ctx, out, in, e.Size, v.chunkSize(), func(done, _ int64) {
		prog.CurrentFileOffset = done
		prog.TotalBytesCopied = base + done
		v.notify(progress, prog)
	})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	prog.TotalFilesCopied++
	return nil
}

type injectItem struct {
	host   string
	volume string
	dir    bool
	size   int64
	// existing is the entry already stored at volume, if any
	existing *FileEntry
}

// planInject walks the host paths and maps each entry below dir
func (v *Volume) planInject(hostPaths []string, dir string) ([]injectItem, *CopyProgress, error) {
	var items []injectItem
	prog := &CopyProgress{}
	for _, root := range hostPaths {
		parent := filepath.Dir(filepath.Clean(root))
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(parent, p)
			if err != nil {
				return err
			}
			it := injectItem{host: p, volume: path.Join(dir, filepath.ToSlash(rel)), dir: d.IsDir()}
			switch {
			case d.IsDir():
				prog.TotalDirectories++
			case d.Type().IsRegular():
				info, err := d.Info()
				if err != nil {
					return err
				}
				it.size = info.Size()
				prog.TotalFiles++
				prog.TotalBytes += it.size
			default:
				v.logger.WithField("path", p).Warn("skipping entry that is not a file or directory")
				return nil
			}
			items = append(items, it)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return items, prog, nil
}

// resolveItems rewrites each target path onto the names already stored on
// the volume and records which targets exist
func (v *Volume) resolveItems(items []injectItem) error {
	for i := range items {
		resolved, entry, err := v.resolve(items[i].volume)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		items[i].volume = resolved
		items[i].existing = entry
	}
	return nil
}

// conflict returns the first volume path a copy would replace. An existing
// directory only conflicts with a file of the same name.
func (v *Volume) conflict(items []injectItem) string {
	for _, it := range items {
		if it.existing == nil {
			continue
		}
		if !it.dir || !it.existing.IsDir {
			return it.volume
		}
	}
	return ""
}

// Inject copies files and directories from the host into dir on the
// volume. Existing entries are an error unless overwrite is set. Directories
// are created first, then files are copied.
func (v *Volume) Inject(ctx context.Context, hostPaths []string, dir string, overwrite bool, progress ProgressFunc) (*CopyProgress, error) {
	if v.ReadOnly() {
		return nil, fmt.Errorf("copy into %s: %w", v.Partition.Name, types.ErrReadOnly)
	}

	target, err := v.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !target.IsDir {
		return nil, fmt.Errorf("%s is not a directory", target.Path)
	}

	items, prog, err := v.planInject(hostPaths, target.Path)
	if err != nil {
		return nil, err
	}
	if err := v.resolveItems(items); err != nil {
		return nil, err
	}
	if !overwrite {
		if p := v.conflict(items); p != "" {
			return nil, fmt.Errorf("%w: %s", types.ErrExists, p)
		}
	}

	free, err := v.Free()
	if err != nil {
		return nil, err
	}
	needed := prog.TotalBytes + int64(prog.TotalFiles+prog.TotalDirectories)*entryOverhead
	if needed >= free {
		return nil, fmt.Errorf("%w: need about %d bytes, %d free", types.ErrNoSpace, needed, free)
	}

	for _, it := range items {
		if !it.dir {
			continue
		}
		if it.existing == nil {
			if err := v.fs.Mkdir(it.volume); err != nil {
				return prog, fmt.Errorf("failed to create %s: %w", it.volume, err)
			}
		}
		prog.TotalDirectoriesCopied++
	}

	for _, it := range items {
		if it.dir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return prog, err
		}
		if err := v.injectFile(ctx, it, prog, progress); err != nil {
			return prog, fmt.Errorf("failed to copy %s: %w", it.host, err)
		}
	}

	v.notify(progress, prog)
	return prog, v.Sync()
}

func (v *Volume) injectFile(ctx context.Context, it injectItem, prog *CopyProgress, progress ProgressFunc) error {
	v.logger.WithFields(logrus.Fields{"path": it.volume, "source": it.host, "size": it.size}).Debug("copying file in")

	in, err := os.Open(it.host)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := v.fs.OpenFile(it.volume, os.O_CREATE|os.O_RDWR|os.O_TRUNC)
	if err != nil {
		return err
	}
	defer out.Close()

	prog.CurrentFile, prog.CurrentFileSize, prog.CurrentFileOffset = it.host, it.size, 0
	base := prog.TotalBytesCopied
	_, err = stream.Copy(ctx, out, in, it.size, v.chunkSize(), func(done, _ int64) {
		prog.CurrentFileOffset = done
		prog.TotalBytesCopied = base + done
		v.notify(progress, prog)
	})
	if err != nil {
		return err
	}
	prog.TotalFilesCopied++
	return nil
}
