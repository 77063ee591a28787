//go:build unix

package lockfile

import "golang.org/x/sys/unix"

// processAlive probes pid with signal 0. ESRCH means the process is gone;
// EPERM means it exists but belongs to another user, which still counts as
// alive for staleness purposes.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}
