package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/battmon/internal/errors"
	"github.com/mitchellh/go-ps"
)

const (
	pidFile     = "battmon.pid"
	processName = "battmon"
)

var findProcess = ps.FindProcess

// DefaultPath returns the pid file location in the system temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write writes the current process ID to path. An existing file is replaced
// unless the process it names is still a running monitor.
func Write(path string) error {
	errFactory := errors.New()
	pid := os.Getpid()

	if bytes, err := os.ReadFile(path); err == nil {
		if other, ok := parsePID(bytes); ok && other != pid && running(other) {
			return errFactory.WithData(errors.ErrAlreadyRunning, struct {
				PID  int
				Path string
			}{
				PID:  other,
				Path: path,
			})
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file if it still belongs to this process.
func Remove(path string) error {
	errFactory := errors.New()

	bytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if other, ok := parsePID(bytes); ok && other != os.Getpid() {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func parsePID(b []byte) (int, bool) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// running reports whether pid is a live process whose executable looks like ours.
// A recycled pid owned by another program counts as stale.
func running(pid int) bool {
	process, err := findProcess(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.Contains(strings.ToLower(process.Executable()), processName)
}
