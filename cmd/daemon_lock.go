package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// daemonLock is the content of the lock file a running reminder daemon holds. It tells
// `daemon status` and `daemon stop` which process to talk to and where it listens.
type daemonLock struct {
	PID         int       `json:"pid"`
	Addr        string    `json:"addr"`
	Schedule    string    `json:"schedule"`
	HorizonDays int       `json:"horizon_days"`
	DBPath      string    `json:"db_path"`
	StartedAt   time.Time `json:"started_at"`
}

func readLock(path string) (daemonLock, error) {
	var lock daemonLock
	data, err := os.ReadFile(path) //nolint:gosec // lock path is configured by the local user
	if err != nil {
		return lock, err
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return lock, fmt.Errorf("corrupt lock file %s: %w", path, err)
	}
	if lock.PID <= 0 {
		return lock, fmt.Errorf("lock file %s has no pid", path)
	}
	return lock, nil
}

// runningDaemon returns the lock of a live daemon. A lock left by a dead process is
// reported as not running.
func runningDaemon(path string) (daemonLock, bool) {
	lock, err := readLock(path)
	if err != nil || !processAlive(lock.PID) {
		return lock, false
	}
	return lock, true
}

// claimLock writes lock to path unless another live daemon holds it. Stale and corrupt
// locks are replaced.
func claimLock(path string, lock daemonLock) error {
	if held, ok := runningDaemon(path); ok {
		return fmt.Errorf("daemon already running (pid %d)", held.PID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec // lock path is configured by the local user
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("claim lock: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("write lock: %w", err)
	}
	return f.Close()
}

// releaseLock removes the lock file if pid still owns it.
func releaseLock(path string, pid int) {
	lock, err := readLock(path)
	if err != nil || lock.PID != pid {
		return
	}
	_ = os.Remove(path)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
