// Package sweeper runs the periodic orphan-temp-file cleanup described in
// spec.md §4.8: a background task that deletes entries older than a
// configured age, plus one eager run at startup before the HTTP listener
// begins accepting.
package sweeper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultInterval = 5 * time.Minute

// Sweeper periodically deletes files in Dir older than MaxAge. Modeled on
// internal/api/stream_tracker.go's StartCleanup (ticker loop, ctx.Done()
// exit) and internal/nzbfilesystem/segcache/manager.go's Start/Stop shape.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Sweeper over dir with the given orphan age threshold. A
// zero interval uses the spec default of 5 minutes.
func New(dir string, maxAge time.Duration, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		logger:   slog.Default().With("component", "sweeper"),
	}
}

// Start runs one eager sweep synchronously — the caller must invoke this
// before the HTTP listener begins accepting, per spec.md §4.8 — then
// launches the periodic background loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.sweepOnce(ctx)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels the background loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce enumerates the temp directory and deletes entries whose
// modification time is older than maxAge. Deletion failures are logged,
// never fatal, so one stuck entry cannot stop the rest of the sweep.
func (s *Sweeper) sweepOnce(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list temp directory for orphan sweep", "dir", s.dir, "err", err)
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			s.logger.WarnContext(ctx, "failed to stat temp directory entry", "name", entry.Name(), "err", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "failed to delete orphaned temp file", "path", path, "err", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "orphan sweep removed stale temp files", "count", removed, "dir", s.dir)
	}
}
