// Package tempfile implements atomic, collision-retrying temp-file
// creation with RAII cleanup, per spec.md §4.3.
package tempfile

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/valueobj"
)

const (
	defaultMode       = 0o600
	maxCreateAttempts = 4 // 1 initial try + 3 retries, per spec.md §4.3
)

// TempFile owns a path and an open file handle. It is destroyed by RAII on
// every exit path: normal return, error, or panic unwinding, via Close.
type TempFile struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	deleted  bool
	writeBuf int
	logger   *slog.Logger
}

// Create builds a TempFile in dir named "{requestID}_{unix_nanos}_{rand32}.tmp",
// opened atomically, exclusively, read-write, with mode 0600. On an
// "already exists" collision it regenerates the name and retries up to 3
// times; the fourth collision fails with apperr.Internal ("create temp file").
func Create(dir string, requestID valueobj.RequestId, writeBufferBytes int) (*TempFile, error) {
	const op = "create temp file"

	if writeBufferBytes <= 0 {
		writeBufferBytes = 64 * 1024
	}

	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		name := candidateName(requestID)
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, defaultMode)
		if err == nil {
			// Belt-and-braces: some platforms honor the mode bits loosely at
			// creation time (umask interaction); reassert it explicitly
			// before any write, per spec.md §4.3 step 2.
			if chmodErr := f.Chmod(defaultMode); chmodErr != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return nil, apperr.Wrap(op, apperr.Internal, chmodErr)
			}
			return &TempFile{
				path:     path,
				file:     f,
				writeBuf: writeBufferBytes,
				logger:   slog.Default().With("component", "tempfile", "request_id", requestID.String()),
			}, nil
		}

		if !os.IsExist(err) {
			return nil, apperr.Wrap(op, apperr.Internal, err)
		}
		lastErr = err
	}

	return nil, apperr.Wrap(op, apperr.Internal, fmt.Errorf("exhausted %d creation attempts: %w", maxCreateAttempts, lastErr))
}

func candidateName(requestID valueobj.RequestId) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	r := binary.BigEndian.Uint32(buf[:])
	return fmt.Sprintf("%s_%d_%d.tmp", requestID.String(), time.Now().UnixNano(), r)
}

// Path returns the file's path on disk.
func (t *TempFile) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

// WriteChunk appends a chunk of bytes. Chunks larger than the configured
// write buffer are written as-is; the buffer size governs how callers
// should slice their input, not a hard limit enforced here. A write
// failure due to lack of disk space is translated to InsufficientStorage
// carrying the byte offset of the failing write.
func (t *TempFile) WriteChunk(chunk []byte) error {
	const op = "write temp file chunk"

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return apperr.New(op, apperr.Internal, "temp file already closed")
	}

	offset, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return apperr.Wrap(op, apperr.Internal, err)
	}

	if _, err := t.file.Write(chunk); err != nil {
		if isNoSpace(err) {
			return apperr.Wrap(op, apperr.InsufficientStorage, fmt.Errorf("no space left at offset %d: %w", offset, err))
		}
		return apperr.Wrap(op, apperr.Internal, err)
	}
	return nil
}

// Flush flushes buffered writes, then fsyncs, so the bytes are durable
// enough for a subsequent mmap to read them back without a race window.
func (t *TempFile) Flush() error {
	const op = "flush and sync temp file"

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return apperr.New(op, apperr.Internal, "temp file already closed")
	}
	if err := t.file.Sync(); err != nil {
		return apperr.Wrap(op, apperr.Internal, err)
	}
	return nil
}

// OpenForRead reopens the file read-only, for handing to the mmap adapter.
func (t *TempFile) OpenForRead() (*os.File, error) {
	t.mu.Lock()
	path := t.path
	t.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap("open temp file for read", apperr.Internal, err)
	}
	return f, nil
}

// Close deletes the file and releases the handle. It is idempotent and
// best-effort: failures are logged, never raised, per spec.md §4.3
// "Destruction". The orphan sweeper (C8) is the safety net for deletions
// missed because the process was killed before Close ran.
func (t *TempFile) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deleted {
		return
	}
	t.deleted = true

	if t.file != nil {
		if err := t.file.Close(); err != nil && t.logger != nil {
			t.logger.Warn("failed to close temp file handle", "path", t.path, "err", err)
		}
		t.file = nil
	}

	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) && t.logger != nil {
		t.logger.Warn("failed to delete temp file", "path", t.path, "err", err)
	}
}

func isNoSpace(err error) bool {
	return isENOSPC(err)
}
