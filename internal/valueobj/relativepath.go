package valueobj

import (
	"strings"

	"github.com/javi11/magicer/internal/apperr"
)

// RelativePath is a purely syntactic value object; existence of the path is
// checked later by the sandbox resolver, never here.
type RelativePath struct {
	value string
}

// NewRelativePath validates the syntactic rules from spec.md §3. It never
// touches the filesystem.
func NewRelativePath(s string) (RelativePath, error) {
	const op = "validate relative path"

	if s == "" {
		return RelativePath{}, apperr.New(op, apperr.Validation, "path must not be empty")
	}
	if strings.HasPrefix(s, "/") {
		return RelativePath{}, apperr.New(op, apperr.Validation, "path must not start with '/'")
	}
	if strings.HasPrefix(s, " ") {
		return RelativePath{}, apperr.New(op, apperr.Validation, "path must not start with a space")
	}
	if strings.HasSuffix(s, ".") {
		return RelativePath{}, apperr.New(op, apperr.Validation, "path must not end with '.'")
	}
	if strings.Contains(s, "//") {
		return RelativePath{}, apperr.New(op, apperr.Validation, "path must not contain '//'")
	}
	for _, segment := range strings.Split(s, "/") {
		if segment == ".." {
			return RelativePath{}, apperr.New(op, apperr.Validation, "path must not contain a '..' segment")
		}
	}
	return RelativePath{value: s}, nil
}

func (p RelativePath) String() string {
	return p.value
}
