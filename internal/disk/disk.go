// File: internal/disk/disk.go
package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
)

// splitSuffix matches the two-digit part suffix of a split dump ("rawnand.bin.00")
var splitSuffix = regexp.MustCompile(`\.\d\d$`)

// Kind is the layout of the dump behind a Disk
type Kind int

const (
	KindCombined Kind = iota
	KindSplit
)

func (k Kind) String() string {
	if k == KindSplit {
		return "split"
	}
	return "combined"
}

// Segment describes one backing file of a virtual disk
type Segment struct {
	Path   string `json:"path" yaml:"path"`
	Start  int64  `json:"start" yaml:"start"`
	Length int64  `json:"length" yaml:"length"`
}

// End returns the virtual offset just past the segment
func (s Segment) End() int64 {
	return s.Start + s.Length
}

type segment struct {
	Segment
	file *lazyFile
}

// Disk presents one combined dump file or an ordered set of split dump files
// as a single byte-addressable device. Segment layout is fixed at open time.
type Disk struct {
	kind     Kind
	segments []*segment
	size     int64
}

// Compile-time check
var _ interfaces.VirtualDisk = (*Disk)(nil)

// Open opens a dump. A path ending in ".NN" is treated as the first of a set
// of split parts living next to each other in the same directory.
func Open(path string) (*Disk, error) {
	if splitSuffix.MatchString(path) {
		return openSplit(path)
	}
	return openCombined(path)
}

func openCombined(path string) (*Disk, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dump file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("dump path %s is a directory", path)
	}
	return newDisk(KindCombined, []string{path}, []int64{stat.Size()}), nil
}

func openSplit(path string) (*Disk, error) {
	paths, err := FindSplitParts(path)
	if err != nil {
		return nil, err
	}

	sizes := make([]int64, len(paths))
	for i, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat dump part: %w", err)
		}
		sizes[i] = stat.Size()
	}
	return newDisk(KindSplit, paths, sizes), nil
}

func newDisk(kind Kind, paths []string, sizes []int64) *Disk {
	d := &Disk{kind: kind}
	for i, p := range paths {
		d.segments = append(d.segments, &segment{
			Segment: Segment{Path: p, Start: d.size, Length: sizes[i]},
			file:    newLazyFile(p),
		})
		d.size += sizes[i]
	}
	return d
}

// FindSplitParts returns the sorted list of "prefix.NN" siblings of a split part
func FindSplitParts(path string) ([]string, error) {
	if !splitSuffix.MatchString(path) {
		return nil, fmt.Errorf("%s is not a split dump part", path)
	}
	dir := filepath.Dir(path)
	prefix := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list split dump directory: %w", err)
	}

	var parts []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if len(name) == len(prefix)+3 && splitSuffix.MatchString(name) {
			parts = append(parts, filepath.Join(dir, name))
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no split dump parts found for %s", path)
	}
	sort.Strings(parts)
	return parts, nil
}

// Kind returns whether the disk is a combined or split dump
func (d *Disk) Kind() Kind {
	return d.kind
}

// Size returns the total size of the disk in bytes
func (d *Disk) Size() int64 {
	return d.size
}

// Segments returns the backing file layout
func (d *Disk) Segments() []Segment {
	out := make([]Segment, len(d.segments))
	for i, s := range d.segments {
		out[i] = s.Segment
	}
	return out
}

// clamp returns how many of length bytes at offset fall inside the disk
func (d *Disk) clamp(offset int64, length int) int {
	if offset < 0 || offset >= d.size || length <= 0 {
		return 0
	}
	if remaining := d.size - offset; int64(length) > remaining {
		return int(remaining)
	}
	return length
}

// ReadBytes reads length bytes at offset. Reads past the end of the disk are
// truncated and a read starting past the end returns an empty slice.
func (d *Disk) ReadBytes(offset int64, length int) ([]byte, error) {
	length = d.clamp(offset, length)
	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}

	pos := 0
	for _, s := range d.segments {
		if pos == length {
			break
		}
		cur := offset + int64(pos)
		if cur < s.Start || cur >= s.End() {
			continue
		}
		f, err := s.file.reader()
		if err != nil {
			return nil, err
		}
		n := int(min(s.End()-cur, int64(length-pos)))
		read, err := f.ReadAt(buf[pos:pos+n], cur-s.Start)
		pos += read
		if err != nil {
			if errors.Is(err, io.EOF) {
				// the part shrank after open; hand back what exists
				return buf[:pos], nil
			}
			return nil, fmt.Errorf("failed to read %s at %d: %w", s.Path, cur-s.Start, err)
		}
	}
	return buf[:pos], nil
}

// WriteBytes writes data at offset. Data past the end of the disk is dropped
// and the returned count covers only the bytes actually written.
func (d *Disk) WriteBytes(offset int64, data []byte) (int, error) {
	length := d.clamp(offset, len(data))
	if length == 0 {
		return 0, nil
	}

	pos := 0
	for _, s := range d.segments {
		if pos == length {
			break
		}
		cur := offset + int64(pos)
		if cur < s.Start || cur >= s.End() {
			continue
		}
		f, err := s.file.writer()
		if err != nil {
			return pos, err
		}
		n := int(min(s.End()-cur, int64(length-pos)))
		written, err := f.WriteAt(data[pos:pos+n], cur-s.Start)
		pos += written
		if err != nil {
			return pos, fmt.Errorf("failed to write %s at %d: %w", s.Path, cur-s.Start, err)
		}
	}
	return pos, nil
}

// Sync flushes every part opened for writing
func (d *Disk) Sync() error {
	for _, s := range d.segments {
		if err := s.file.sync(); err != nil {
			return fmt.Errorf("failed to sync %s: %w", s.Path, err)
		}
	}
	return nil
}

// Close releases every open descriptor
func (d *Disk) Close() error {
	var errs []error
	for _, s := range d.segments {
		if err := s.file.close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", s.Path, err))
		}
	}
	return errors.Join(errs...)
}
