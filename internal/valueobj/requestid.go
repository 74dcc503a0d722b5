package valueobj

import (
	"github.com/google/uuid"
	"github.com/javi11/magicer/internal/apperr"
)

// RequestId is a UUID v4 formatted as lowercase hyphenated text, minted
// once per request and threaded into every log line and response body.
type RequestId struct {
	value string
}

// NewRequestId mints a fresh v4 request id.
func NewRequestId() RequestId {
	return RequestId{value: uuid.New().String()}
}

// ParseRequestId validates an externally supplied request id string.
func ParseRequestId(s string) (RequestId, error) {
	if _, err := uuid.Parse(s); err != nil {
		return RequestId{}, apperr.Wrap("parse request id", apperr.Validation, err)
	}
	return RequestId{value: s}, nil
}

func (r RequestId) String() string {
	return r.value
}
