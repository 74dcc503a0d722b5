// Package logging configures the process-wide slog.Logger: text or JSON
// output, optionally mirrored to a rotating file, per spec.md §6's
// server.log_format/server.log_file options. Every component in the rest
// of the tree calls slog.Default().With("component", ...) rather than
// carrying its own logger dependency.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/javi11/magicer/internal/config"
)

// Configure builds and installs the default slog.Logger from the server
// section of cfg. It returns the io.Closer for the rotating file sink, if
// one was configured, so the caller can flush it during shutdown.
func Configure(cfg config.ServerConfig) io.Closer {
	var writer io.Writer = os.Stdout
	var closer io.Closer = noopCloser{}

	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(writer, nil)
	} else {
		handler = slog.NewTextHandler(writer, nil)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
