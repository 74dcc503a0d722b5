package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesOriginalKind(t *testing.T) {
	inner := New("create temp file", InsufficientStorage, "no space left on device")
	outer := Wrap("spill request body", TooLarge, inner)

	assert.Equal(t, InsufficientStorage, outer.Kind, "wrapping must not change the original kind")
	assert.Equal(t, "spill request body", outer.Op)
}

func TestWrapWithPlainError(t *testing.T) {
	cause := errors.New("disk offline")
	err := Wrap("probe disk space", InsufficientStorage, cause)

	assert.Equal(t, InsufficientStorage, err.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestErrorMessageFormat(t *testing.T) {
	err := New("parse relative path", Validation, "contains ..")
	assert.Equal(t, "failed to parse relative path: contains ..", err.Error())
}

func TestKindOfUnwrapsNonApperr(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.True(t, Is(New("x", Forbidden, "y"), Forbidden))
}
