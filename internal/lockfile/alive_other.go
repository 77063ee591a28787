//go:build !unix

package lockfile

import "os"

// processAlive is a best-effort liveness probe on platforms without kill(2)
// semantics. FindProcess only fails for invalid pids on these platforms, so a
// failure means the pid cannot name a live owner.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
