// Package magic wraps the libmagic C library behind a single mutex-guarded
// handle, per spec.md §4.5 and §9. libmagic is not thread-safe: one
// compiled-database handle must never be used concurrently from two
// goroutines, so every call is serialized here the same way
// internal/fuse/backend/cgofuse wraps its own thread-hostile C library
// behind one struct with explicit lifecycle methods.
package magic

import (
	"strings"
	"sync"

	"github.com/javi11/magicer/internal/apperr"
)

// Handle owns the opaque libmagic cookie and the mutex that serializes
// every access to it. It must not be copied or shared except through its
// methods; in particular it is not safe to call concurrently from two
// goroutines without going through the mutex, which is exactly what every
// exported method does.
type Handle struct {
	mu  sync.Mutex
	cky cookie
}

// Open loads the compiled magic database from databasePath (empty string
// means the system default) and configures the library for "MIME type and
// encoding" output. The handle is constructed once at startup and
// destroyed exactly once at shutdown via Close.
func Open(databasePath string) (*Handle, error) {
	const op = "open magic database"

	cky, err := cookieOpen()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.Internal, err)
	}

	if err := cky.load(databasePath); err != nil {
		cky.close()
		return nil, apperr.Wrap(op, apperr.Internal, err)
	}

	return &Handle{cky: cky}, nil
}

// Close releases the underlying libmagic cookie. Safe to call even during
// unwinding; it is the caller's responsibility to ensure no other goroutine
// is mid-call (shutdown should happen after the HTTP listener has stopped
// accepting and in-flight requests have drained).
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cky.close()
}

// AnalyzeBytes identifies the content of buf. The mutex is held for the
// duration of the call; the returned strings are copied out of libmagic's
// internal buffer before the mutex is released, so they remain valid after
// a concurrent caller's next call overwrites that buffer.
func (h *Handle) AnalyzeBytes(buf []byte) (mimeType string, description string, err error) {
	const op = "analyze bytes"

	h.mu.Lock()
	defer h.mu.Unlock()

	mime, descErr := h.cky.analyzeBuffer(buf, true)
	if descErr != nil {
		return "", "", mapLibraryError(op, descErr)
	}
	desc, err2 := h.cky.analyzeBuffer(buf, false)
	if err2 != nil {
		return "", "", mapLibraryError(op, err2)
	}

	return sanitizeOutput(mime), sanitizeOutput(desc), nil
}

// AnalyzePath identifies the file at abs, a canonical absolute path. Same
// mutex and copy-out discipline as AnalyzeBytes.
func (h *Handle) AnalyzePath(abs string) (mimeType string, description string, err error) {
	const op = "analyze path"

	h.mu.Lock()
	defer h.mu.Unlock()

	mime, descErr := h.cky.analyzeFile(abs, true)
	if descErr != nil {
		return "", "", mapLibraryError(op, descErr)
	}
	desc, err2 := h.cky.analyzeFile(abs, false)
	if err2 != nil {
		return "", "", mapLibraryError(op, err2)
	}

	return sanitizeOutput(mime), sanitizeOutput(desc), nil
}

// sanitizeOutput applies the pinned policy for non-UTF-8 libmagic output:
// lossy conversion, per SPEC_FULL.md's Open Question decision #1.
func sanitizeOutput(s string) string {
	return strings.ToValidUTF8(s, "�")
}

func mapLibraryError(op string, err *libraryError) *apperr.Error {
	switch err.errno {
	case errnoNoEnt:
		return apperr.New(op, apperr.NotFound, err.message)
	case errnoNoMem:
		return apperr.New(op, apperr.OutOfMemory, err.message)
	default:
		return apperr.New(op, apperr.AnalysisFailed, err.message)
	}
}
