package stream

import (
	"io"

	"github.com/deploymenttheory/go-nxnand/internal/interfaces"
)

// DiskReader reads a byte range of a disk or partition as an io.Reader
type DiskReader struct {
	disk interfaces.DiskReader
	pos  int64
	end  int64
}

// NewDiskReader reads length bytes starting at offset. A negative length
// reads to the end of the device.
func NewDiskReader(d interfaces.DiskReader, offset, length int64) *DiskReader {
	end := d.Size()
	if length >= 0 && offset+length < end {
		end = offset + length
	}
	return &DiskReader{disk: d, pos: offset, end: end}
}

func (r *DiskReader) Read(p []byte) (int, error) {
	if r.pos >= r.end {
		return 0, io.EOF
	}
	want := int(min(int64(len(p)), r.end-r.pos))
	data, err := r.disk.ReadBytes(r.pos, want)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, data)
	r.pos += int64(n)
	return n, nil
}

// DiskWriter writes sequentially to a disk or partition starting at an offset
type DiskWriter struct {
	disk interfaces.DiskWriter
	pos  int64
}

// NewDiskWriter starts writing at offset
func NewDiskWriter(d interfaces.DiskWriter, offset int64) *DiskWriter {
	return &DiskWriter{disk: d, pos: offset}
}

func (w *DiskWriter) Write(p []byte) (int, error) {
	n, err := w.disk.WriteBytes(w.pos, p)
	w.pos += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}
