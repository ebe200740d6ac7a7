// Package procguard prevents two studyserver instances from racing
// over the same SQLite file by writing a PID lockfile and checking it
// against the live process table. Grounded on the teacher's
// internal/notifier lockfile format ("port|pid|secret", validated via
// ps.FindProcess + Executable() prefix match) and adapted from a
// tray-app liveness check into a startup single-instance guard.
package procguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
)

var findProcessFunc = ps.FindProcess

// executableName is the process name this guard looks for when
// deciding whether a recorded PID is still this program running.
const executableName = "studyserver"

// Guard holds the path to the lockfile acquired by Acquire.
type Guard struct {
	path string
}

// Acquire writes a PID lockfile at path, failing if a live studyserver
// process already holds it.
func Acquire(path string) (*Guard, error) {
	if content, err := os.ReadFile(path); err == nil {
		if pid, ok := parseLockfile(string(content)); ok {
			if running, err := processIsStudyServer(pid); err == nil && running {
				return nil, fmt.Errorf("procguard: another studyserver instance is already running (pid %d)", pid)
			}
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return nil, fmt.Errorf("procguard: failed to write lockfile: %w", err)
	}
	return &Guard{path: path}, nil
}

// Release removes the lockfile. Call via defer after a successful Acquire.
func (g *Guard) Release() error {
	return os.Remove(g.path)
}

func parseLockfile(content string) (pid int, ok bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0, false
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return n, true
}

func processIsStudyServer(pid int) (bool, error) {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false, nil
	}
	return strings.HasPrefix(process.Executable(), executableName), nil
}
