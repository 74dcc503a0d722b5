// Package ingest implements the content ingest pipeline (C7): the
// per-request decision between buffering in memory and spilling to a
// temp file, bounded by the configured byte ceiling, per spec.md §4.7.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/javi11/magicer/internal/admission"
	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/blockingbridge"
	"github.com/javi11/magicer/internal/config"
	"github.com/javi11/magicer/internal/diskspace"
	"github.com/javi11/magicer/internal/domain"
	"github.com/javi11/magicer/internal/metrics"
	"github.com/javi11/magicer/internal/mmapadapter"
	"github.com/javi11/magicer/internal/tempfile"
	"github.com/javi11/magicer/internal/valueobj"
)

// Analyzer is the subset of *magic.Handle the pipeline depends on. Defined
// here, at the consumer, so tests can substitute a fake and exercise the
// decision machinery without a libmagic database.
type Analyzer interface {
	AnalyzeBytes(buf []byte) (mimeType string, description string, err error)
}

// Pipeline wires the resource-bounding decision machinery (this package)
// to the three blocking collaborators it drives: the analyzer handle
// (C5), the blocking bridge (C6), and the mmap adapter (C4).
type Pipeline struct {
	cfg     config.ConfigGetter
	limiter *admission.Limiter
	handle  Analyzer
	mapper  *mmapadapter.Adapter
	bridge  *blockingbridge.Bridge
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates a Pipeline. handle, mapper, bridge, and rec are long-lived,
// process-wide collaborators constructed once at startup.
func New(cfg config.ConfigGetter, limiter *admission.Limiter, handle Analyzer, mapper *mmapadapter.Adapter, bridge *blockingbridge.Bridge, rec *metrics.Recorder) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		limiter: limiter,
		handle:  handle,
		mapper:  mapper,
		bridge:  bridge,
		metrics: rec,
		logger:  slog.Default().With("component", "ingest"),
	}
}

// Request describes the body-mode ingest inputs the HTTP collaborator
// provides, per spec.md §4.7 "Inputs it receives".
type Request struct {
	Body           io.Reader
	DeclaredLength int64 // -1 if unknown
	Chunked        bool
	Filename       valueobj.Filename
	RequestID      valueobj.RequestId
}

// HandleContent runs the full Admit -> Decide -> Buffer|Spill state
// machine of spec.md §4.7 and returns the analyzer's result for the
// request's body. The analyzer is called at most once, per the
// "Ordering guarantee" in §4.7.
func (p *Pipeline) HandleContent(ctx context.Context, req Request) (domain.MagicResult, error) {
	const op = "ingest content request"
	cfg := p.cfg()

	// --- Admit ---
	if err := p.limiter.Admit(); err != nil {
		return domain.MagicResult{}, err
	}
	defer p.limiter.Release()

	p.metrics.IncInFlight()
	defer p.metrics.DecInFlight()

	maxBody := cfg.MaxBodySizeBytes()
	if req.DeclaredLength >= 0 && req.DeclaredLength > maxBody {
		return domain.MagicResult{}, apperr.New(op, apperr.TooLarge, "declared content length exceeds the body size ceiling")
	}

	readCtx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout())
	defer cancel()

	// --- Decide ---
	spill := req.Chunked || req.DeclaredLength > cfg.LargeFileThresholdBytes()

	var mime, desc string
	var err error
	if spill {
		mime, desc, err = p.spillAndAnalyze(readCtx, cfg, req, maxBody)
	} else {
		mime, desc, err = p.bufferAndAnalyze(readCtx, cfg, req, maxBody)
	}
	if err != nil {
		return domain.MagicResult{}, err
	}

	return p.buildResult(req.RequestID, req.Filename, mime, desc, op)
}

// HandlePath runs the path-mode variant of the same state machine: admit,
// open the already-sandboxed absolute path, map it read-only, and analyze
// the mapped view. Per the pinned Open Question decision, path mode never
// calls the analyzer's path-based entry point directly — it always maps
// the file and analyzes bytes, the same code path HandleContent uses for a
// spilled body, so there is exactly one analysis call site in the package.
func (p *Pipeline) HandlePath(ctx context.Context, absPath string, filename valueobj.Filename, requestID valueobj.RequestId) (domain.MagicResult, error) {
	const op = "ingest path request"
	cfg := p.cfg()

	if err := p.limiter.Admit(); err != nil {
		return domain.MagicResult{}, err
	}
	defer p.limiter.Release()

	p.metrics.IncInFlight()
	defer p.metrics.DecInFlight()

	f, err := os.Open(absPath)
	if err != nil {
		return domain.MagicResult{}, apperr.Wrap(op, apperr.NotFound, err)
	}
	defer f.Close()

	region, err := p.mapper.MapReadOnly(f)
	if err != nil {
		return domain.MagicResult{}, err
	}
	defer region.Close()

	mime, desc, err := p.analyzeView(ctx, cfg, region.Bytes())
	if err != nil {
		return domain.MagicResult{}, err
	}

	return p.buildResult(requestID, filename, mime, desc, op)
}

// bufferAndAnalyze implements the "Buffer" phase of spec.md §4.7: accumulate
// the body into an owned byte buffer, rejecting once it would exceed
// max_body_size, then call the analyzer on the buffer.
func (p *Pipeline) bufferAndAnalyze(ctx context.Context, cfg *config.Config, req Request, maxBody int64) (string, string, error) {
	const op = "buffer request body"

	p.metrics.IncBuffer()

	buf, err := readBounded(req.Body, maxBody)
	if err != nil {
		return "", "", apperr.Wrap(op, apperr.KindOf(err), err)
	}

	return p.analyzeBytes(ctx, cfg, buf)
}

// spillAndAnalyze implements the "Spill" phase of spec.md §4.7: pre-flight
// disk check, create a TempFile, stream chunks into it, then flush, sync,
// open for read, map, and analyze the view.
func (p *Pipeline) spillAndAnalyze(ctx context.Context, cfg *config.Config, req Request, maxBody int64) (string, string, error) {
	const op = "spill request body to disk"

	p.metrics.IncSpill()

	availableMB, err := diskspace.AvailableMB(cfg.Analysis.TempDir)
	if err != nil {
		return "", "", apperr.Wrap(op, apperr.InsufficientStorage, err)
	}
	if int64(availableMB) < int64(cfg.Analysis.MinFreeSpaceMB) {
		return "", "", apperr.New(op, apperr.InsufficientStorage, "temp filesystem has less free space than the configured minimum")
	}

	tf, err := tempfile.Create(cfg.Analysis.TempDir, req.RequestID, cfg.WriteBufferBytes())
	if err != nil {
		return "", "", err
	}
	defer tf.Close()

	if err := streamToTempFile(ctx, tf, req.Body, cfg.WriteBufferBytes(), maxBody); err != nil {
		return "", "", err
	}

	if err := tf.Flush(); err != nil {
		return "", "", apperr.Wrap(op, apperr.Internal, err)
	}

	f, err := tf.OpenForRead()
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	region, err := p.mapper.MapReadOnly(f)
	if err != nil {
		return "", "", err
	}
	defer region.Close()

	return p.analyzeView(ctx, cfg, region.Bytes())
}

// analyzeBytes dispatches an in-memory buffer to the analyzer via the
// blocking bridge, applying the analyzer timeout and the mmap fault-flag
// discipline of spec.md §4.4 even though no mmap is involved for the
// buffer path (the flag is only ever set by a real mapping fault, so it is
// a no-op here; keeping the same clear/inspect shape avoids a second code
// path for the two ingest modes, per SPEC_FULL.md's Open Question
// decision on path-mode handling).
func (p *Pipeline) analyzeBytes(ctx context.Context, cfg *config.Config, buf []byte) (string, string, error) {
	return p.analyzeView(ctx, cfg, buf)
}

// analyzeView is the single code path both ingest modes funnel through: it
// clears the mmap fault flag, calls the analyzer on the blocking bridge
// under the configured timeout, then inspects the flag — a flag set after
// the call converts any outcome into MmapFault, per spec.md §4.4.
func (p *Pipeline) analyzeView(ctx context.Context, cfg *config.Config, view []byte) (string, string, error) {
	const op = "analyze content"

	mmapadapter.ClearFault()

	start := time.Now()
	var mime, desc string
	err := p.bridge.Dispatch(ctx, cfg.AnalysisTimeout(), op, func() error {
		var callErr error
		mime, desc, callErr = p.handle.AnalyzeBytes(view)
		return callErr
	})
	p.metrics.ObserveAnalyze(time.Since(start))

	if mmapadapter.FaultOccurred() {
		return "", "", apperr.New(op, apperr.MmapFault, "backing file was truncated or faulted during analysis")
	}
	if err != nil {
		return "", "", err
	}

	return mime, desc, nil
}

func (p *Pipeline) buildResult(requestID valueobj.RequestId, filename valueobj.Filename, mimeStr, desc, op string) (domain.MagicResult, error) {
	mime, err := valueobj.NewMimeType(mimeStr)
	if err != nil {
		return domain.MagicResult{}, apperr.Wrap(op, apperr.AnalysisFailed, err)
	}
	return domain.NewMagicResult(requestID, filename, mime, desc), nil
}

// readBounded reads all of r into a buffer, rejecting with TooLarge the
// moment the accumulated size would exceed limit. It never reads more than
// limit+1 bytes from r, regardless of how large the underlying stream is.
func readBounded(r io.Reader, limit int64) ([]byte, error) {
	const op = "read request body"

	var buf bytes.Buffer
	limited := io.LimitReader(r, limit+1)

	n, err := io.Copy(&buf, limited)
	if err != nil {
		return nil, classifyReadErr(op, err)
	}
	if n > limit {
		return nil, apperr.New(op, apperr.TooLarge, "body exceeds the configured size ceiling")
	}
	return buf.Bytes(), nil
}

// classifyReadErr maps a body-read failure to Timeout when it was caused by
// the read_timeout deadline (a context cancellation or a net.Error whose
// Timeout() reports true), per spec.md §4.7's "Body timeout exceeds
// read_timeout -> abort and reject Timeout" row, falling back to Internal
// for anything else.
func classifyReadErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(op, apperr.Timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.Wrap(op, apperr.Timeout, err)
	}
	return apperr.New(op, apperr.Internal, err.Error())
}

// streamToTempFile copies chunks of chunkSize from r into tf, enforcing
// limit across the whole stream and translating a write-time ENOSPC (via
// tf.WriteChunk) or an over-limit body into the matching apperr.Kind.
func streamToTempFile(ctx context.Context, tf *tempfile.TempFile, r io.Reader, chunkSize int, limit int64) error {
	const op = "stream body to temp file"

	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	buf := make([]byte, chunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return apperr.Wrap(op, apperr.Timeout, err)
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > limit {
				return apperr.New(op, apperr.TooLarge, "body exceeds the configured size ceiling")
			}
			if writeErr := tf.WriteChunk(buf[:n]); writeErr != nil {
				return writeErr
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return classifyReadErr(op, readErr)
		}
	}
}
