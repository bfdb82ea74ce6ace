// File: internal/stream/chunks.go
// Package stream moves large byte ranges in bounded chunks with progress
// reporting between chunks.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSize is the chunk size used when none is given
const DefaultBufferSize = 1 << 20

// Progress is called after each chunk with the bytes handled so far and the
// expected total. total is negative when unknown.
type Progress func(done, total int64)

// Chunks iterates over a reader in chunks of at most the buffer size. The
// slice returned by Bytes is reused by the next call to Next.
//
//	c := stream.NewChunks(r, size, 0, nil)
//	for c.Next() {
//		use(c.Bytes())
//	}
//	if err := c.Err(); err != nil { ... }
type Chunks struct {
	r        io.Reader
	buf      []byte
	chunk    []byte
	total    int64
	done     int64
	progress Progress
	err      error
}

// NewChunks creates an iterator. When total is not negative at most total
// bytes are read and a short source is reported as io.ErrUnexpectedEOF.
func NewChunks(r io.Reader, total int64, bufSize int, progress Progress) *Chunks {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Chunks{
		r:        r,
		buf:      make([]byte, bufSize),
		total:    total,
		progress: progress,
	}
}

// Next reads the next chunk and reports whether one is available
func (c *Chunks) Next() bool {
	if c.err != nil {
		return false
	}

	want := len(c.buf)
	if c.total >= 0 {
		remaining := c.total - c.done
		if remaining <= 0 {
			return false
		}
		want = int(min(int64(want), remaining))
	}

	n, err := io.ReadFull(c.r, c.buf[:want])
	switch {
	case errors.Is(err, io.EOF):
		if c.total > 0 {
			c.err = fmt.Errorf("source ended after %d of %d bytes: %w", c.done, c.total, io.ErrUnexpectedEOF)
		}
		return false
	case errors.Is(err, io.ErrUnexpectedEOF):
		if c.total >= 0 {
			c.err = fmt.Errorf("source ended after %d of %d bytes: %w", c.done+int64(n), c.total, io.ErrUnexpectedEOF)
			return false
		}
		// unknown length, a short chunk is the last one
		c.err = io.EOF
	case err != nil:
		c.err = err
		return false
	}

	c.chunk = c.buf[:n]
	c.done += int64(n)
	if c.progress != nil {
		c.progress(c.done, c.total)
	}
	return true
}

// Bytes returns the current chunk
func (c *Chunks) Bytes() []byte { return c.chunk }

// Done returns the number of bytes produced so far
func (c *Chunks) Done() int64 { return c.done }

// Err returns the first error other than the end of the source
func (c *Chunks) Err() error {
	if errors.Is(c.err, io.EOF) && !errors.Is(c.err, io.ErrUnexpectedEOF) {
		return nil
	}
	return c.err
}

// Copy copies total bytes (or until EOF when total is negative) from src to
// dst chunk by chunk. The context is checked between chunks; everything
// written before cancellation stays written.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, total int64, bufSize int, progress Progress) (int64, error) {
	var written int64
	c := NewChunks(src, total, bufSize, progress)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if !c.Next() {
			break
		}
		n, err := dst.Write(c.Bytes())
		written += int64(n)
		if err != nil {
			return written, err
		}
		if n != len(c.Bytes()) {
			return written, io.ErrShortWrite
		}
	}
	return written, c.Err()
}
