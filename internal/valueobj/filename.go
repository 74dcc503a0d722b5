// Package valueobj holds immutable value objects constructed only through
// validating factories, per the data model in spec.md §3.
package valueobj

import (
	"strings"

	"github.com/javi11/magicer/internal/apperr"
)

const maxFilenameBytes = 310

// Filename is a non-empty, bounded string used only for logging and
// response context. It never influences file-system lookup.
type Filename struct {
	value string
}

// NewFilename validates and constructs a Filename.
func NewFilename(s string) (Filename, error) {
	if s == "" {
		return Filename{}, apperr.New("validate filename", apperr.Validation, "filename must not be empty")
	}
	if len(s) > maxFilenameBytes {
		return Filename{}, apperr.New("validate filename", apperr.Validation, "filename exceeds 310 bytes")
	}
	if strings.ContainsRune(s, '/') {
		return Filename{}, apperr.New("validate filename", apperr.Validation, "filename must not contain '/'")
	}
	if strings.ContainsRune(s, 0) {
		return Filename{}, apperr.New("validate filename", apperr.Validation, "filename must not contain a null byte")
	}
	return Filename{value: s}, nil
}

func (f Filename) String() string {
	return f.value
}
