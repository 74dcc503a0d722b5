package httpapi

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/domain"
)

type resultPayload struct {
	MimeType    string `json:"mime_type"`
	Description string `json:"description"`
}

type successResponse struct {
	RequestID string        `json:"request_id"`
	Filename  string        `json:"filename"`
	Result    resultPayload `json:"result"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// statusForKind is the single place that maps the error taxonomy to HTTP
// status codes, per spec.md §7.
func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.Validation:
		return fiber.StatusBadRequest
	case apperr.Unauthorized:
		return fiber.StatusUnauthorized
	case apperr.Forbidden:
		return fiber.StatusForbidden
	case apperr.NotFound:
		return fiber.StatusNotFound
	case apperr.TooLarge:
		return fiber.StatusRequestEntityTooLarge
	case apperr.Timeout:
		return fiber.StatusGatewayTimeout
	case apperr.InsufficientStorage:
		return fiber.StatusInsufficientStorage
	case apperr.Overloaded:
		return fiber.StatusServiceUnavailable
	case apperr.MmapFault, apperr.MapFailed, apperr.AnalysisFailed, apperr.OutOfMemory, apperr.Internal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// fixedMessage is the short string a 5xx body carries; the cause itself is
// only ever logged, never returned, per spec.md §7.
func fixedMessage(k apperr.Kind) string {
	switch k {
	case apperr.MmapFault, apperr.MapFailed, apperr.AnalysisFailed, apperr.OutOfMemory, apperr.Internal:
		return "internal error"
	case apperr.Overloaded:
		return "service overloaded"
	case apperr.InsufficientStorage:
		return "insufficient storage"
	case apperr.Timeout:
		return "operation timed out"
	default:
		return ""
	}
}

// respondResult writes the success envelope of spec.md §6.
func respondResult(c *fiber.Ctx, requestID, filename string, res domain.MagicResult) error {
	return c.Status(fiber.StatusOK).JSON(successResponse{
		RequestID: requestID,
		Filename:  filename,
		Result: resultPayload{
			MimeType:    res.MimeType.String(),
			Description: res.Description,
		},
	})
}

// respondError maps err through the taxonomy and writes the error envelope
// of spec.md §6. The actionable cause is only exposed for 4xx; 5xx bodies
// carry the fixed string, per spec.md §7.
func respondError(c *fiber.Ctx, requestID string, err error) error {
	kind := apperr.KindOf(err)
	status := statusForKind(kind)

	msg := fixedMessage(kind)
	if msg == "" {
		msg = err.Error()
	} else {
		slog.ErrorContext(c.UserContext(), "request failed", "request_id", requestID, "kind", kind, "status", status, "err", err)
	}

	return c.Status(status).JSON(errorResponse{Error: msg, RequestID: requestID})
}
