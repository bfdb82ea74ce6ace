package disk

import (
	"fmt"
	"os"
)

// fileState is the open state of a lazily managed descriptor
type fileState int

const (
	stateClosed fileState = iota
	stateReadOnly
	stateReadWrite
)

func (s fileState) String() string {
	switch s {
	case stateReadOnly:
		return "read-only"
	case stateReadWrite:
		return "read-write"
	default:
		return "closed"
	}
}

// lazyFile opens its backing file on first use. A read-only descriptor is
// closed and reopened read-write on the first write; it is never downgraded.
type lazyFile struct {
	path  string
	state fileState
	file  *os.File
}

func newLazyFile(path string) *lazyFile {
	return &lazyFile{path: path, state: stateClosed}
}

// reader returns a descriptor usable for reads, opening read-only if needed
func (l *lazyFile) reader() (*os.File, error) {
	if l.state != stateClosed {
		return l.file, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", l.path, err)
	}
	l.file = f
	l.state = stateReadOnly
	return f, nil
}

// writer returns a read-write descriptor, upgrading a read-only one
func (l *lazyFile) writer() (*os.File, error) {
	switch l.state {
	case stateReadWrite:
		return l.file, nil
	case stateReadOnly:
		if err := l.file.Close(); err != nil {
			return nil, fmt.Errorf("failed to close read-only descriptor for %s: %w", l.path, err)
		}
		l.file = nil
		l.state = stateClosed
	}
	f, err := os.OpenFile(l.path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for writing: %w", l.path, err)
	}
	l.file = f
	l.state = stateReadWrite
	return f, nil
}

func (l *lazyFile) sync() error {
	if l.state != stateReadWrite {
		return nil
	}
	return l.file.Sync()
}

func (l *lazyFile) close() error {
	if l.state == stateClosed {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.state = stateClosed
	return err
}
