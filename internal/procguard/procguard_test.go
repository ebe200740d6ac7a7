package procguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int         { return m.pid }
func (m *mockProcess) PPid() int        { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func withMockFindProcess(t *testing.T, fn func(pid int) (ps.Process, error)) {
	t.Helper()
	old := findProcessFunc
	findProcessFunc = fn
	t.Cleanup(func() { findProcessFunc = old })
}

func TestAcquire_SucceedsWithNoExistingLockfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studyserver.lock")

	g, err := Acquire(path)
	if err != nil {
		t.Fatalf("expected Acquire to succeed, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected lockfile to exist, got %v", err)
	}
	if err := g.Release(); err != nil {
		t.Fatalf("expected Release to succeed, got %v", err)
	}
}

func TestAcquire_FailsWhenLiveStudyServerHoldsLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studyserver.lock")
	if err := os.WriteFile(path, []byte("4242"), 0644); err != nil {
		t.Fatal(err)
	}

	withMockFindProcess(t, func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "studyserver"}, nil
	})

	if _, err := Acquire(path); err == nil {
		t.Fatal("expected Acquire to fail against a live studyserver process")
	}
}

func TestAcquire_SucceedsWhenLockedPidIsGone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studyserver.lock")
	if err := os.WriteFile(path, []byte("4242"), 0644); err != nil {
		t.Fatal(err)
	}

	withMockFindProcess(t, func(pid int) (ps.Process, error) {
		return nil, nil
	})

	if _, err := Acquire(path); err != nil {
		t.Fatalf("expected Acquire to succeed over a stale lockfile, got %v", err)
	}
}

func TestAcquire_SucceedsWhenPidBelongsToDifferentExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studyserver.lock")
	if err := os.WriteFile(path, []byte("4242"), 0644); err != nil {
		t.Fatal(err)
	}

	withMockFindProcess(t, func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "some-other-app"}, nil
	})

	if _, err := Acquire(path); err != nil {
		t.Fatalf("expected Acquire to succeed when the pid is a different process, got %v", err)
	}
}
