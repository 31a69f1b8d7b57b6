package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	want := fmt.Sprintf("%d\n", os.Getpid())
	if string(data) != want {
		t.Errorf("pid file = %q, want %q", data, want)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("pid file still exists after release")
	}

	// Double release is safe.
	if err := lock.Release(); err != nil {
		t.Errorf("second release: %v", err)
	}
}

func TestAcquireConflictsWithLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")

	// Our own PID is definitely alive.
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	_, err := AcquireLock(path)
	if err == nil {
		t.Fatal("expected acquisition to fail against a live process")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("error %q should name the running instance", err)
	}
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")

	// A PID that cannot be a live process.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("expected stale lock to be reclaimed: %v", err)
	}
	defer lock.Release()

	pid, err := readPID(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestAcquireReclaimsGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("expected garbage pid file to be reclaimed: %v", err)
	}
	lock.Release()
}
