package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/javi11/magicer/internal/admission"
	"github.com/javi11/magicer/internal/apperr"
	"github.com/javi11/magicer/internal/blockingbridge"
	"github.com/javi11/magicer/internal/config"
	"github.com/javi11/magicer/internal/metrics"
	"github.com/javi11/magicer/internal/mmapadapter"
	"github.com/javi11/magicer/internal/valueobj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnalyzer stands in for *magic.Handle so these tests exercise the
// decision machinery without a compiled libmagic database.
type fakeAnalyzer struct {
	mime string
	desc string
	err  error
	// calls counts invocations, to assert the "analyzer called at most
	// once per request" guarantee.
	calls int
}

func (f *fakeAnalyzer) AnalyzeBytes(buf []byte) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.mime, f.desc, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Sandbox.BaseDir = t.TempDir()
	cfg.Auth.Username = "u"
	cfg.Auth.Password = "p"
	cfg.Analysis.TempDir = t.TempDir()
	cfg.Analysis.LargeFileThresholdMB = 1
	cfg.Analysis.MinFreeSpaceMB = 1
	cfg.Server.MaxBodySizeMB = 1
	require.NoError(t, cfg.Validate())
	return &cfg
}

func newTestPipeline(t *testing.T, analyzer Analyzer, cfg *config.Config) *Pipeline {
	t.Helper()
	return New(
		func() *config.Config { return cfg },
		admission.New(cfg.Server.MaxOpenFiles),
		analyzer,
		mmapadapter.New(cfg.Analysis.MmapFallbackEnabled),
		blockingbridge.New(4),
		metrics.New(),
	)
}

func mustFilename(t *testing.T, s string) valueobj.Filename {
	t.Helper()
	fn, err := valueobj.NewFilename(s)
	require.NoError(t, err)
	return fn
}

func TestHandleContentBuffersSmallBody(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "ASCII text"}
	p := newTestPipeline(t, analyzer, cfg)

	res, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader([]byte("hello world")),
		DeclaredLength: 11,
		Chunked:        false,
		Filename:       mustFilename(t, "hello.txt"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.NoError(t, err)
	assert.Equal(t, "text/plain", res.MimeType.String())
	assert.Equal(t, "ASCII text", res.Description)
	assert.Equal(t, 1, analyzer.calls, "analyzer must be called exactly once")
}

func TestHandleContentSpillsChunkedBody(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "application/octet-stream", desc: "data"}
	p := newTestPipeline(t, analyzer, cfg)

	payload := bytes.Repeat([]byte{0xAB}, 128*1024)
	res, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader(payload),
		DeclaredLength: -1,
		Chunked:        true,
		Filename:       mustFilename(t, "blob.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", res.MimeType.String())
	assert.Equal(t, 1, analyzer.calls, "analyzer must be called exactly once")
}

func TestHandleContentSpillsBodyAboveThreshold(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "big text"}
	p := newTestPipeline(t, analyzer, cfg)

	cfg.Server.MaxBodySizeMB = 4 // body must fit under the ceiling while still exceeding the threshold
	payload := bytes.Repeat([]byte{'a'}, 2*1024*1024)

	res, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader(payload),
		DeclaredLength: int64(len(payload)),
		Chunked:        false,
		Filename:       mustFilename(t, "big.txt"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.NoError(t, err)
	assert.Equal(t, "text/plain", res.MimeType.String())
	assert.Equal(t, 1, analyzer.calls)
}

func TestHandleContentRejectsDeclaredLengthAboveCeiling(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader(nil),
		DeclaredLength: cfg.MaxBodySizeBytes() + 1,
		Chunked:        false,
		Filename:       mustFilename(t, "huge.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TooLarge))
	assert.Equal(t, 0, analyzer.calls, "analyzer must never be called once the body is rejected")
}

func TestHandleContentRejectsBufferedBodyExceedingCeilingWithUnknownLength(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.LargeFileThresholdMB = 100 // keep this request on the buffer path
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	oversized := bytes.Repeat([]byte{'z'}, int(cfg.MaxBodySizeBytes())+1)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader(oversized),
		DeclaredLength: -1,
		Chunked:        false,
		Filename:       mustFilename(t, "oversized.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TooLarge))
	assert.Equal(t, 0, analyzer.calls)
}

func TestHandleContentRejectsSpilledBodyExceedingCeiling(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	oversized := bytes.Repeat([]byte{'z'}, int(cfg.MaxBodySizeBytes())+1)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader(oversized),
		DeclaredLength: -1,
		Chunked:        true,
		Filename:       mustFilename(t, "oversized.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TooLarge))
	assert.Equal(t, 0, analyzer.calls, "analyzer must never run on a body that overflowed the ceiling mid-stream")
}

func TestHandleContentPropagatesAnalyzerFailure(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{err: apperr.New("analyze bytes", apperr.AnalysisFailed, "could not classify content")}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader([]byte("whatever")),
		DeclaredLength: 8,
		Chunked:        false,
		Filename:       mustFilename(t, "whatever.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.AnalysisFailed))
}

func TestHandleContentRejectsAtAdmissionCeiling(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxOpenFiles = 0
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           bytes.NewReader([]byte("x")),
		DeclaredLength: 1,
		Chunked:        false,
		Filename:       mustFilename(t, "x.txt"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Overloaded))
	assert.Equal(t, 0, analyzer.calls)
}

func TestHandlePathAnalyzesMappedFile(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "ASCII text"}
	p := newTestPipeline(t, analyzer, cfg)

	dir := t.TempDir()
	path := dir + "/doc.txt"
	require.NoError(t, os.WriteFile(path, []byte("hello from disk"), 0o600))

	res, err := p.HandlePath(context.Background(), path, mustFilename(t, "doc.txt"), valueobj.NewRequestId())

	require.NoError(t, err)
	assert.Equal(t, "text/plain", res.MimeType.String())
	assert.Equal(t, 1, analyzer.calls, "analyzer must be called exactly once")
}

func TestHandlePathRejectsMissingFile(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandlePath(context.Background(), t.TempDir()+"/missing.txt", mustFilename(t, "missing.txt"), valueobj.NewRequestId())

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.Equal(t, 0, analyzer.calls)
}

// errReader always fails on Read, to exercise the streaming error path.
type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, io.ErrUnexpectedEOF }

// timeoutNetError implements net.Error with Timeout() true, standing in for
// what a real read-deadline expiry on a network connection returns.
type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

// timeoutReader always fails with a net.Error reporting Timeout() true.
type timeoutReader struct{}

func (timeoutReader) Read(p []byte) (int, error) { return 0, timeoutNetError{} }

func TestHandleContentPropagatesReadFailureDuringSpill(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           errReader{},
		DeclaredLength: -1,
		Chunked:        true,
		Filename:       mustFilename(t, "x.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.Equal(t, 0, analyzer.calls)
}

func TestHandleContentClassifiesNetworkTimeoutDuringSpill(t *testing.T) {
	cfg := testConfig(t)
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           timeoutReader{},
		DeclaredLength: -1,
		Chunked:        true,
		Filename:       mustFilename(t, "x.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Timeout), "a read deadline expiry must map to Timeout, not Internal")
	assert.Equal(t, 0, analyzer.calls)
}

func TestHandleContentClassifiesNetworkTimeoutWhileBuffering(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.LargeFileThresholdMB = 100 // keep this request on the buffer path
	analyzer := &fakeAnalyzer{mime: "text/plain", desc: "n/a"}
	p := newTestPipeline(t, analyzer, cfg)

	_, err := p.HandleContent(context.Background(), Request{
		Body:           timeoutReader{},
		DeclaredLength: -1,
		Chunked:        false,
		Filename:       mustFilename(t, "x.bin"),
		RequestID:      valueobj.NewRequestId(),
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Timeout), "a read deadline expiry must map to Timeout, not Internal")
	assert.Equal(t, 0, analyzer.calls)
}
