// Package mmapadapter provides a read-only private memory mapping over a
// file descriptor, with signal-safe detection of external truncation and a
// configurable fallback to a full in-memory read, per spec.md §4.4.
package mmapadapter

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/javi11/magicer/internal/apperr"
)

// MappedRegion owns a read-only view over a file's contents, either a true
// mmap or (on fallback) a fully-read byte buffer. Destruction order is
// fixed: unmap, then close the descriptor — Close enforces that order.
type MappedRegion struct {
	file   *os.File
	data   []byte
	isMmap bool
	closed bool
}

// Bytes returns the region's immutable view. Its lifetime must not exceed
// the MappedRegion's own lifetime; callers must not retain it past Close.
func (r *MappedRegion) Bytes() []byte {
	return r.data
}

// Close unmaps (if this is a true mmap) and then closes the backing
// descriptor, strictly in that order, per spec.md invariant 3. It is
// idempotent.
func (r *MappedRegion) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.isMmap && r.data != nil {
		err = unix.Munmap(r.data)
	}
	r.data = nil

	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Adapter maps files read-only, installing the process-wide SIGBUS/SIGSEGV
// handler exactly once (see faulthandler.go).
type Adapter struct {
	fallbackEnabled bool
}

// New creates an Adapter. fallbackEnabled controls whether a failed mmap
// call (e.g. a resource cap) falls back to a full-buffer read, or is
// reported as MapFailed.
func New(fallbackEnabled bool) *Adapter {
	installFaultHandlerOnce()
	return &Adapter{fallbackEnabled: fallbackEnabled}
}

// MapReadOnly maps f read-only and private, denying execute, per the flag
// table in spec.md §4.4. On failure, it falls back to a full read if
// fallbackEnabled, else returns MapFailed.
func (a *Adapter) MapReadOnly(f *os.File) (*MappedRegion, error) {
	const op = "map file read-only"

	info, err := f.Stat()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.Internal, err)
	}

	size := info.Size()
	if size == 0 {
		// mmap of a zero-length file is undefined on most platforms; an
		// empty immutable view is a faithful, safe substitute.
		return &MappedRegion{file: f, data: []byte{}, isMmap: false}, nil
	}

	data, mmapErr := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if mmapErr == nil {
		return &MappedRegion{file: f, data: data, isMmap: true}, nil
	}

	if !a.fallbackEnabled {
		return nil, apperr.Wrap(op, apperr.MapFailed, mmapErr)
	}

	buf, readErr := readFileFull(f, size)
	if readErr != nil {
		return nil, apperr.Wrap(op, apperr.MapFailed, readErr)
	}
	return &MappedRegion{file: f, data: buf, isMmap: false}, nil
}

func readFileFull(f *os.File, size int64) ([]byte, error) {
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, 0)
	if err != nil && int64(n) != size {
		return nil, err
	}
	return buf[:n], nil
}
