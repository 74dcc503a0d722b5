package httpapi

import (
	"bytes"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/javi11/magicer/internal/ingest"
	"github.com/javi11/magicer/internal/valueobj"
)

// handlePing answers the liveness probe of spec.md §6; it never touches
// auth, the sandbox, or the analyzer.
func handlePing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "pong",
		"request_id": requestIDFromCtx(c).String(),
	})
}

// handleMagicContent wires the request body into ingest.Pipeline per
// spec.md §4.7's content-mode inputs. The server is started with
// StreamRequestBody enabled so fasthttp hands back a real stream for
// chunked or large bodies instead of buffering them first — the pipeline's
// own buffer/spill decision is what bounds peak heap (invariant 5 of
// spec.md §8), not a framework-level read-it-all-first step.
func (s *Server) handleMagicContent(c *fiber.Ctx) error {
	requestID := requestIDFromCtx(c)

	filename, err := valueobj.NewFilename(c.Query("filename"))
	if err != nil {
		return respondError(c, requestID.String(), err)
	}

	body, declaredLength, chunked := requestBody(c)

	res, err := s.pipeline.HandleContent(c.Context(), ingest.Request{
		Body:           body,
		DeclaredLength: declaredLength,
		Chunked:        chunked,
		Filename:       filename,
		RequestID:      requestID,
	})
	if err != nil {
		return respondError(c, requestID.String(), err)
	}

	return respondResult(c, requestID.String(), filename.String(), res)
}

// requestBody returns a reader over the request body, its declared length
// (negative if unknown), and whether the length is unknown (chunked
// transfer encoding, or a body without Content-Length).
// It prefers fasthttp's body stream, available when StreamRequestBody is
// enabled and the body is large or chunked; otherwise it wraps the
// already-buffered bytes.
func requestBody(c *fiber.Ctx) (io.Reader, int64, bool) {
	length := c.Context().Request.Header.ContentLength()
	chunked := length < 0

	if stream := c.Context().RequestBodyStream(); stream != nil {
		return stream, int64(length), chunked
	}

	body := c.Body()
	return bytes.NewReader(body), int64(len(body)), chunked
}

// handleMagicPath resolves the path query parameter through the sandbox
// before handing the canonical absolute path to ingest.Pipeline.HandlePath,
// per spec.md §4.1 and §4.7.
func (s *Server) handleMagicPath(c *fiber.Ctx) error {
	requestID := requestIDFromCtx(c)

	filename, err := valueobj.NewFilename(c.Query("filename"))
	if err != nil {
		return respondError(c, requestID.String(), err)
	}

	rel, err := valueobj.NewRelativePath(c.Query("path"))
	if err != nil {
		return respondError(c, requestID.String(), err)
	}

	abs, err := s.validator.Resolve(c.Context(), s.cfg().AnalysisTimeout(), rel)
	if err != nil {
		return respondError(c, requestID.String(), err)
	}

	res, err := s.pipeline.HandlePath(c.Context(), abs, filename, requestID)
	if err != nil {
		return respondError(c, requestID.String(), err)
	}

	return respondResult(c, requestID.String(), filename.String(), res)
}

// handleHealthz is the liveness endpoint: it reports healthy as long as the
// process is running at all, independent of readiness to serve traffic.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// handleReadyz reflects the Server's ready flag, set once at startup after
// the eager orphan sweep has run and cleared during graceful shutdown.
func (s *Server) handleReadyz(c *fiber.Ctx) error {
	if !s.IsReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
}
