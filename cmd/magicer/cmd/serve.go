package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/javi11/magicer/internal/admission"
	"github.com/javi11/magicer/internal/blockingbridge"
	"github.com/javi11/magicer/internal/config"
	"github.com/javi11/magicer/internal/httpapi"
	"github.com/javi11/magicer/internal/ingest"
	"github.com/javi11/magicer/internal/logging"
	"github.com/javi11/magicer/internal/magic"
	"github.com/javi11/magicer/internal/metrics"
	"github.com/javi11/magicer/internal/mmapadapter"
	"github.com/javi11/magicer/internal/sandbox"
	"github.com/javi11/magicer/internal/sweeper"
	"github.com/javi11/magicer/internal/valueobj"
)

// drainTimeout is the bounded drain window for in-flight requests on
// shutdown, per spec.md §6 "Process lifecycle".
const drainTimeout = 10 * time.Second

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (default command)",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	mgr, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfgGetter := mgr.Getter()
	cfg := mgr.Get()

	logCloser := logging.Configure(cfg.Server)
	defer logCloser.Close()

	slog.Info("starting magicer", "version", versionString())

	if err := admission.RaiseFileDescriptorLimit(uint64(cfg.Server.MaxOpenFiles)); err != nil {
		return fmt.Errorf("raise file descriptor limit: %w", err)
	}
	limiter := admission.New(cfg.Server.MaxOpenFiles)

	validator, err := sandbox.New(cfg.Sandbox.BaseDir)
	if err != nil {
		return fmt.Errorf("initialize sandbox: %w", err)
	}

	handle, err := magic.Open(cfg.Magic.DatabasePath)
	if err != nil {
		return fmt.Errorf("open magic database: %w", err)
	}
	defer handle.Close()

	mapper := mmapadapter.New(cfg.Analysis.MmapFallbackEnabled)
	bridge := blockingbridge.New(runtime.GOMAXPROCS(0) * 4)
	rec := metrics.New()
	pipeline := ingest.New(cfgGetter, limiter, handle, mapper, bridge, rec)

	if err := os.MkdirAll(cfg.Analysis.TempDir, 0o700); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}

	sweep := sweeper.New(cfg.Analysis.TempDir, cfg.TempFileMaxAge(), 0)

	creds, err := valueobj.NewCredentials(cfg.Auth.Username, cfg.Auth.Password)
	if err != nil {
		return fmt.Errorf("validate auth credentials: %w", err)
	}
	credsGetter := func() valueobj.Credentials { return creds }

	srv := httpapi.New(cfgGetter, pipeline, validator, limiter, rec, credsGetter)

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	sweep.Start(ctx)
	defer sweep.Stop()

	srv.SetReady(true)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Listen()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining in-flight requests", "timeout", drainTimeout)
	}

	srv.SetReady(false)

	// A second signal forces immediate termination, per spec.md §6.
	forceCtx, stopForce := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopForce()
	go func() {
		<-forceCtx.Done()
		slog.Warn("second shutdown signal received, forcing immediate exit")
		os.Exit(1)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}
