// Package diskspace probes available bytes on a filesystem for admission
// control, per spec.md §4.2. Failures to probe always surface as an error;
// they never silently admit a request.
package diskspace

import (
	"golang.org/x/sys/unix"

	"github.com/javi11/magicer/internal/apperr"
)

const bytesPerMB = 1024 * 1024

// AvailableMB returns the bytes available to an unprivileged process on the
// filesystem backing dir, in MiB, via the statvfs-equivalent
// f_bavail * f_frsize / 2^20.
func AvailableMB(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, apperr.Wrap("probe disk space", apperr.InsufficientStorage, err)
	}
	available := stat.Bavail * uint64(stat.Frsize)
	return available / bytesPerMB, nil
}
