// Package sandbox implements syntactic-then-filesystem path containment: a
// validated relative path is canonicalized and checked against a
// configured base directory, per spec.md §4.1.
package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/blockingbridge"
	"github.com/javi11/magicer/internal/valueobj"
)

// Validator resolves a sandboxed relative path against a fixed base
// directory.
type Validator struct {
	baseDir string
}

// New creates a Validator rooted at baseDir. baseDir is canonicalized once
// at construction so every later comparison is apples-to-apples.
func New(baseDir string) (*Validator, error) {
	canonicalBase, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return nil, apperr.Wrap("initialize sandbox base directory", apperr.Internal, err)
	}
	return &Validator{baseDir: canonicalBase}, nil
}

// Resolve validates that rel, once joined to the base directory and
// canonicalized, still has the base directory as an ancestor. It never
// leaks whether an intermediate path component existed when the target is
// absent: the error is always NotFound.
//
// Canonicalization is a blocking syscall and runs in a separate goroutine
// via blockingbridge.Call, under timeout, per spec.md §5.
func (v *Validator) Resolve(ctx context.Context, timeout time.Duration, rel valueobj.RelativePath) (string, error) {
	const op = "resolve sandboxed path"

	joined := filepath.Join(v.baseDir, rel.String())

	canonical, err := blockingbridge.Call(ctx, timeout, op, func() (string, error) {
		return filepath.EvalSymlinks(joined)
	})
	if err != nil {
		if apperr.Is(err, apperr.Timeout) {
			return "", err
		}
		// Every canonicalization failure — missing file, missing parent,
		// permission denied partway down — collapses to the same NotFound,
		// so the response never leaks which intermediate component existed.
		return "", apperr.New(op, apperr.NotFound, "path does not exist")
	}

	if !isWithinBase(v.baseDir, canonical) {
		return "", apperr.New(op, apperr.Forbidden, "path escapes the sandbox base directory")
	}

	return canonical, nil
}

// isWithinBase reports whether canonical is base itself or a descendant of
// it, compared byte-wise on the canonical form (no case folding).
func isWithinBase(base, canonical string) bool {
	if canonical == base {
		return true
	}
	return strings.HasPrefix(canonical, base+string(os.PathSeparator))
}
