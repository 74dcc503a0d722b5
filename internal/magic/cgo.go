package magic

/*
#cgo LDFLAGS: -lmagic
#include <errno.h>
#include <magic.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// magicFlags configures libmagic for "MIME type and encoding" output, per
// spec.md §4.5.
const magicFlags = C.MAGIC_MIME_TYPE | C.MAGIC_MIME_ENCODING | C.MAGIC_ERROR

const (
	errnoNoEnt = int(C.ENOENT)
	errnoNoMem = int(C.ENOMEM)
)

// cookie wraps the opaque magic_t pointer. All access must go through
// Handle's mutex; cookie itself enforces no concurrency discipline.
type cookie struct {
	c C.magic_t
}

// libraryError carries libmagic's last-error message and errno, mapped to
// an apperr.Kind by mapLibraryError in handle.go.
type libraryError struct {
	message string
	errno   int
}

func (e *libraryError) Error() string {
	return e.message
}

func cookieOpen() (cookie, error) {
	c := C.magic_open(C.int(magicFlags))
	if c == nil {
		return cookie{}, fmt.Errorf("magic_open failed: could not allocate cookie")
	}
	return cookie{c: c}, nil
}

func (k cookie) load(databasePath string) error {
	if databasePath == "" {
		if C.magic_load(k.c, nil) != 0 {
			return k.lastError()
		}
		return nil
	}

	cPath := C.CString(databasePath)
	defer C.free(unsafe.Pointer(cPath))

	if C.magic_load(k.c, cPath) != 0 {
		return k.lastError()
	}
	return nil
}

func (k cookie) close() {
	if k.c != nil {
		C.magic_close(k.c)
	}
}

// analyzeBuffer calls magic_buffer. magic_buffer respects whatever flags
// the cookie currently holds, so setMimeMode first replaces them (the
// Open-time flags included): MAGIC_MIME_TYPE for the MIME half of
// Handle.AnalyzeBytes, no output flag for the description half. The MIME
// half therefore returns a bare "type/subtype" without an encoding. Both
// halves are serialized by the same mutex.
func (k cookie) analyzeBuffer(buf []byte, mime bool) (string, *libraryError) {
	if err := k.setMimeMode(mime); err != nil {
		return "", err
	}

	var ptr unsafe.Pointer
	if len(buf) > 0 {
		ptr = unsafe.Pointer(&buf[0])
	}

	result := C.magic_buffer(k.c, ptr, C.size_t(len(buf)))
	if result == nil {
		return "", k.lastError()
	}
	return C.GoString(result), nil
}

// analyzeFile calls magic_file on an absolute path.
func (k cookie) analyzeFile(path string, mime bool) (string, *libraryError) {
	if err := k.setMimeMode(mime); err != nil {
		return "", err
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	result := C.magic_file(k.c, cPath)
	if result == nil {
		return "", k.lastError()
	}
	return C.GoString(result), nil
}

func (k cookie) setMimeMode(mime bool) *libraryError {
	flags := C.int(C.MAGIC_ERROR)
	if mime {
		flags |= C.MAGIC_MIME_TYPE
	}
	if C.magic_setflags(k.c, flags) != 0 {
		return k.lastError()
	}
	return nil
}

// lastError reads the library's last-error message and errno, per
// spec.md §4.5: "read the library's last-error via its pair of error
// accessors".
func (k cookie) lastError() *libraryError {
	msg := C.magic_error(k.c)
	errno := int(C.magic_errno(k.c))

	text := "unknown libmagic error"
	if msg != nil {
		text = C.GoString(msg)
	}

	return &libraryError{message: text, errno: errno}
}
