package mmapadapter

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// faultFlag is set by the process-wide SIGBUS/SIGSEGV handler when a
// mapped-memory access faults — the only two events that can fault a
// read-only private mapping: the backing file was truncated, or a
// hardware/storage error surfaced as a bus error. The handler itself does
// no allocation, no locking, no I/O: it is the minimum async-signal-safe
// set, per spec.md §4.4 and design note "Signals cannot acquire locks or
// allocate".
var faultFlag atomic.Bool

var installOnce sync.Once

// installFaultHandlerOnce installs the process-wide signal handler exactly
// once. Go's signal package already defers delivery to a dedicated
// goroutine, so the handler body below runs in ordinary Go code, not an
// actual OS signal context — but it is written as if it could not safely
// allocate or lock, matching the async-signal-safety discipline the
// underlying C library boundary requires.
func installFaultHandlerOnce() {
	installOnce.Do(func() {
		ch := make(chan os.Signal, 16)
		signal.Notify(ch, syscall.SIGBUS, syscall.SIGSEGV)
		go func() {
			for range ch {
				faultFlag.Store(true)
			}
		}()
	})
}

// ClearFault resets the fault flag. Callers must clear it immediately
// before an analyzer call and inspect it afterwards, per spec.md §4.4.
func ClearFault() {
	faultFlag.Store(false)
}

// FaultOccurred reports whether a fault was observed since the last
// ClearFault.
func FaultOccurred() bool {
	return faultFlag.Load()
}
