package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/valueobj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRel(t *testing.T, s string) valueobj.RelativePath {
	t.Helper()
	rel, err := valueobj.NewRelativePath(s)
	require.NoError(t, err)
	return rel
}

func TestResolveAcceptsFileInsideBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "hello.txt"), []byte("hi"), 0o600))

	v, err := New(base)
	require.NoError(t, err)

	got, err := v.Resolve(context.Background(), time.Second, mustRel(t, "hello.txt"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "hello.txt"), got)
}

func TestResolveRejectsMissingFileAsNotFound(t *testing.T) {
	base := t.TempDir()

	v, err := New(base)
	require.NoError(t, err)

	_, err = v.Resolve(context.Background(), time.Second, mustRel(t, "missing.txt"))
	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestResolveAcceptsSymlinkInsideBaseWhoseTargetIsInsideBase(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real.txt")
	require.NoError(t, os.WriteFile(target, []byte("hi"), 0o600))
	link := filepath.Join(base, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	v, err := New(base)
	require.NoError(t, err)

	got, err := v.Resolve(context.Background(), time.Second, mustRel(t, "link.txt"))
	assert.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestResolveRejectsSymlinkEscapingBase(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	outsideFile := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(outsideFile, []byte("secret"), 0o600))

	link := filepath.Join(base, "escape.txt")
	require.NoError(t, os.Symlink(outsideFile, link))

	v, err := New(base)
	require.NoError(t, err)

	_, err = v.Resolve(context.Background(), time.Second, mustRel(t, "escape.txt"))
	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}
