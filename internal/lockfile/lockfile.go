// Package lockfile provides mutual exclusion across OS processes for one
// target directory.
//
// The lock file's existence is the sole gate: acquisition uses exclusive-create
// semantics so two processes can never both observe "unlocked" and proceed.
// There is no heartbeat or renewal; an operation that legitimately outlives
// StaleAfter loses its lock to staleness reclaim. That is a known limitation
// of the design, not something this package papers over.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/conn-castle/variant-layer/internal/fault"
	"github.com/conn-castle/variant-layer/internal/messages"
)

// Operation records why the lock is held.
type Operation string

const (
	OpInstall Operation = "install"
	OpUpgrade Operation = "upgrade"
)

// StaleAfter is the age past which a lock is reclaimable even if its owner
// pid still exists.
const StaleAfter = 10 * time.Minute

// reclaimAttempts bounds stale-lock reclaim so two processes racing to reclaim
// cannot spin forever.
const reclaimAttempts = 3

// Record is the JSON payload persisted while the lock is held.
type Record struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Operation Operation `json:"operation"`
}

// Manager acquires and releases the lock at a fixed path.
type Manager struct {
	path string

	// now and processAlive are swappable for tests.
	now          func() time.Time
	processAlive func(pid int) bool
}

// NewManager returns a Manager for the lock file at path.
func NewManager(path string) *Manager {
	return &Manager{
		path:         path,
		now:          time.Now,
		processAlive: processAlive,
	}
}

// Acquire takes the lock for op or fails with fault.LockHeld. It never waits:
// a live, non-stale owner fails the call immediately and the caller must retry
// later. Stale locks (dead owner pid, or older than StaleAfter) are deleted
// and acquisition retried a bounded number of times. A lock whose record is
// unreadable counts as stale only once the file itself is older than
// StaleAfter; a fresh unreadable file is an owner mid-write, not reclaimable.
func (m *Manager) Acquire(op Operation) error {
	for attempt := 0; attempt < reclaimAttempts; attempt++ {
		created, err := m.tryCreate(op)
		if err != nil {
			return err
		}
		if created {
			return nil
		}

		record, readErr := m.readRecord()
		if readErr != nil {
			if errors.Is(readErr, os.ErrNotExist) {
				// Owner released between our create attempt and read; retry.
				continue
			}
			// An unreadable record can be a live owner caught between creating
			// the file and writing its payload. Reclaim only once the file
			// itself has outlived StaleAfter; until then the lock is held.
			stale, staleErr := m.fileStale()
			if staleErr != nil {
				if errors.Is(staleErr, os.ErrNotExist) {
					continue
				}
				return staleErr
			}
			if !stale {
				return fault.New(fault.LockHeld, messages.LockHeldUnreadableFmt, m.path)
			}
			if removeErr := m.remove(); removeErr != nil {
				return removeErr
			}
			continue
		}

		if m.isStale(record) {
			if removeErr := m.remove(); removeErr != nil {
				return removeErr
			}
			continue
		}

		return fault.New(fault.LockHeld, messages.LockHeldFmt,
			record.PID, record.StartedAt.Format(time.RFC3339))
	}
	return fault.New(fault.LockHeld, messages.LockReclaimRacedFmt, m.path, reclaimAttempts)
}

// Release deletes the lock file. A missing file is success so callers can
// release unconditionally in a defer.
func (m *Manager) Release() error {
	err := os.Remove(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(messages.InstallFailedRemoveFmt, m.path, err)
	}
	return nil
}

// Held reports whether a lock file currently exists, without judging staleness.
func (m *Manager) Held() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// tryCreate attempts the exclusive create. It reports created=false without an
// error when the file already exists.
func (m *Manager) tryCreate(op Operation) (bool, error) {
	record := Record{
		PID:       os.Getpid(),
		StartedAt: m.now().UTC(),
		Operation: op,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal lock record: %w", err)
	}
	data = append(data, '\n')

	// O_EXCL makes the existence check and the creation one atomic step,
	// eliminating the check-then-act race between processes.
	file, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf(messages.LockCreateFmt, m.path, err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(m.path)
		return false, fmt.Errorf(messages.InstallFailedWriteFmt, m.path, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(m.path)
		return false, fmt.Errorf(messages.InstallFailedWriteFmt, m.path, err)
	}
	return true, nil
}

func (m *Manager) readRecord() (Record, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf(messages.LockRecordReadFmt, m.path, err)
	}
	if record.PID <= 0 {
		return Record{}, fmt.Errorf(messages.LockRecordReadFmt, m.path, errors.New("missing pid"))
	}
	return record, nil
}

// fileStale reports whether the lock file itself, by modification time, has
// outlived StaleAfter. It is the only staleness signal available when the
// record cannot be parsed.
func (m *Manager) fileStale() (bool, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, err
		}
		return false, fmt.Errorf(messages.InstallFailedStatFmt, m.path, err)
	}
	return m.now().Sub(info.ModTime()) > StaleAfter, nil
}

func (m *Manager) isStale(record Record) bool {
	if !m.processAlive(record.PID) {
		return true
	}
	return m.now().Sub(record.StartedAt) > StaleAfter
}

func (m *Manager) remove() error {
	err := os.Remove(m.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(messages.InstallFailedRemoveFmt, m.path, err)
	}
	return nil
}
