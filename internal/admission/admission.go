// Package admission enforces the FD ceiling, connection ceiling, and
// startup rlimit raise described in spec.md §4.9.
package admission

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/javi11/magicer/internal/apperr"
)

// Limiter counts FD slots and rejects admission once the configured
// ceiling is reached. The ingest pipeline reserves one slot per admitted
// request; the temp files, read handles and mappings a request opens are
// not counted separately. Per spec.md invariant 6:
// "open_fds <= max_open_files; admission control is the only place this is
// checked."
type Limiter struct {
	maxOpenFiles int64
	openFDs      atomic.Int64
}

// New creates a Limiter with the given ceiling.
func New(maxOpenFiles int) *Limiter {
	return &Limiter{maxOpenFiles: int64(maxOpenFiles)}
}

// Admit reserves one FD slot if the ceiling has not been reached. Callers
// must call Release exactly once for every successful Admit, on every exit
// path.
func (l *Limiter) Admit() error {
	if l.openFDs.Add(1) > l.maxOpenFiles {
		l.openFDs.Add(-1)
		return apperr.New("admit request", apperr.Overloaded, "file descriptor ceiling reached")
	}
	return nil
}

// Release returns one FD slot. It is safe to call from a defer alongside
// an RAII resource's own Close.
func (l *Limiter) Release() {
	l.openFDs.Add(-1)
}

// OpenFDs returns the current count of FD slots in use, for metrics.
func (l *Limiter) OpenFDs() int64 {
	return l.openFDs.Load()
}

// RaiseFileDescriptorLimit attempts to raise the process's soft FD rlimit
// to at least want. If the OS refuses, the caller should abort startup
// before opening the listening socket, per spec.md §4.9.
func RaiseFileDescriptorLimit(want uint64) error {
	const op = "raise file descriptor limit"

	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return apperr.Wrap(op, apperr.Internal, err)
	}

	if rlimit.Cur >= want {
		return nil
	}

	target := want
	if rlimit.Max < target {
		target = rlimit.Max
	}

	rlimit.Cur = target
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return apperr.Wrap(op, apperr.Internal, err)
	}

	if target < want {
		return apperr.New(op, apperr.Internal, "hard limit below requested file descriptor ceiling")
	}
	return nil
}
