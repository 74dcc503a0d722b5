package valueobj

import (
	"strings"

	"github.com/javi11/magicer/internal/apperr"
)

// rfc6838TokenChar matches the subset of ASCII permitted in an RFC 6838
// type/subtype token: alphanumerics and a handful of punctuation marks.
func rfc6838TokenChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case strings.ContainsRune("!#$&-^_.+", r):
		return true
	}
	return false
}

// MimeType is a validated "type/subtype" pair.
type MimeType struct {
	value string
}

// NewMimeType validates a MIME type string against the shape required by
// spec.md §3: non-empty, exactly one '/', both sides RFC 6838 tokens.
func NewMimeType(s string) (MimeType, error) {
	const op = "validate mime type"

	if s == "" {
		return MimeType{}, apperr.New(op, apperr.Validation, "mime type must not be empty")
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return MimeType{}, apperr.New(op, apperr.Validation, "mime type must contain exactly one '/'")
	}
	for _, part := range parts {
		if part == "" {
			return MimeType{}, apperr.New(op, apperr.Validation, "mime type sides must not be empty")
		}
		for _, r := range part {
			if !rfc6838TokenChar(r) {
				return MimeType{}, apperr.New(op, apperr.Validation, "mime type contains a disallowed character")
			}
		}
	}
	return MimeType{value: s}, nil
}

func (m MimeType) String() string {
	return m.value
}
