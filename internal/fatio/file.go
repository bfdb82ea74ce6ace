package fatio

import (
	"errors"
	"fmt"
	"io"

	"github.com/diskfs/go-diskfs/util"
)

// File is a byte-addressed view of a DiskIO. Byte ranges are translated into
// whole-sector Read and Write calls, so partial sectors are read, patched and
// written back. It satisfies util.File and can be handed to the fat32 driver.
type File struct {
	dev *DiskIO
	pos int64
}

var _ util.File = (*File)(nil)

// NewFile wraps a sector adapter
func NewFile(dev *DiskIO) *File {
	return &File{dev: dev}
}

// Size returns the number of bytes covered by whole sectors
func (f *File) Size() int64 {
	return int64(f.dev.SectorCount()) * f.dev.sectorSize
}

// span returns the sector range covering [off, off+n)
func (f *File) span(off int64, n int) (first, count uint64) {
	ss := f.dev.sectorSize
	start := off / ss
	end := (off + int64(n) + ss - 1) / ss
	return uint64(start), uint64(end - start)
}

// ReadAt implements io.ReaderAt
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	size := f.Size()
	if off >= size {
		return 0, io.EOF
	}

	want, eof := p, false
	if remaining := size - off; int64(len(want)) > remaining {
		want, eof = want[:remaining], true
	}
	if len(want) == 0 {
		return 0, nil
	}

	first, count := f.span(off, len(want))
	buf := make([]byte, count*uint64(f.dev.sectorSize))
	if err := f.dev.Read(buf, first, count); err != nil {
		return 0, err
	}

	n := copy(want, buf[off-int64(first)*f.dev.sectorSize:])
	if eof {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Bytes past the last whole sector are
// dropped and reported with io.ErrShortWrite.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if f.dev.readOnly {
		return 0, f.dev.Write(nil, uint64(off/f.dev.sectorSize), 0)
	}
	size := f.Size()
	if off >= size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.ErrShortWrite
	}

	data, short := p, false
	if remaining := size - off; int64(len(data)) > remaining {
		data, short = data[:remaining], true
	}
	if len(data) == 0 {
		return 0, nil
	}

	ss := f.dev.sectorSize
	first, count := f.span(off, len(data))
	buf := make([]byte, count*uint64(ss))

	headPartial := off%ss != 0
	tailPartial := (off+int64(len(data)))%ss != 0
	if headPartial {
		if err := f.dev.Read(buf[:ss], first, 1); err != nil {
			return 0, err
		}
	}
	if tailPartial && (count > 1 || !headPartial) {
		if err := f.dev.Read(buf[int64(len(buf))-ss:], first+count-1, 1); err != nil {
			return 0, err
		}
	}

	copy(buf[off-int64(first)*ss:], data)
	if err := f.dev.Write(buf, first, count); err != nil {
		return 0, err
	}

	if short {
		return len(data), io.ErrShortWrite
	}
	return len(data), nil
}

// Seek implements io.Seeker. The position only matters to callers that track
// it; ReadAt and WriteAt ignore it.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = f.Size() + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	f.pos = pos
	return pos, nil
}
