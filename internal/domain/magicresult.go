// Package domain holds the entities of the core pipeline.
package domain

import "github.com/javi11/magicer/internal/valueobj"

// MagicResult is the single entity produced by the pipeline, identified by
// its RequestId. Construction is the only mutation point; once built it is
// read-only.
type MagicResult struct {
	RequestID   valueobj.RequestId
	Filename    valueobj.Filename
	MimeType    valueobj.MimeType
	Description string
}

// NewMagicResult constructs a MagicResult. It is the only way to obtain one.
func NewMagicResult(requestID valueobj.RequestId, filename valueobj.Filename, mimeType valueobj.MimeType, description string) MagicResult {
	return MagicResult{
		RequestID:   requestID,
		Filename:    filename,
		MimeType:    mimeType,
		Description: description,
	}
}
