package cmd

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestClaimLock_RefusesSecondDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "smartpayd.json")
	lock := daemonLock{PID: os.Getpid(), Addr: "127.0.0.1:8787", HorizonDays: 7, StartedAt: time.Now()}

	if err := claimLock(path, lock); err != nil {
		t.Fatalf("claimLock: %v", err)
	}
	got, ok := runningDaemon(path)
	if !ok || got.PID != lock.PID || got.Addr != lock.Addr {
		t.Fatalf("runningDaemon = %+v, %v", got, ok)
	}
	if err := claimLock(path, lock); err == nil {
		t.Fatal("second claim succeeded while the owner is alive")
	}

	// Only the owner releases the lock.
	releaseLock(path, lock.PID+1)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock removed by another pid: %v", err)
	}
	releaseLock(path, lock.PID)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("lock still present after release: %v", err)
	}
}

func TestClaimLock_ReplacesCorruptLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartpayd.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := runningDaemon(path); ok {
		t.Fatal("corrupt lock reported as running")
	}
	if err := claimLock(path, daemonLock{PID: os.Getpid()}); err != nil {
		t.Fatalf("claimLock over corrupt file: %v", err)
	}
	if got, err := readLock(path); err != nil || got.PID != os.Getpid() {
		t.Fatalf("readLock = %+v, %v", got, err)
	}
}

func TestChildArgs(t *testing.T) {
	saved := cfg
	t.Cleanup(func() {
		cfg = saved
		flagDaemonAddr, flagDaemonSchedule, flagDaemonLockFile = "", "", ""
		flagDaemonHorizon = 0
	})
	cfg.General.DataDir = t.TempDir()
	flagDaemonAddr = "127.0.0.1:9999"
	flagDaemonSchedule = "@every 5m"
	flagDaemonHorizon = 3
	flagDaemonLockFile = "/tmp/smartpayd.json"

	args := childArgs()
	if args[0] != "daemon" || !slices.Contains(args, "--child") || slices.Contains(args, "--detach") {
		t.Fatalf("childArgs = %v", args)
	}
	i := slices.Index(args, "--horizon")
	if i < 0 || args[i+1] != "3" {
		t.Fatalf("childArgs horizon = %v", args)
	}
	i = slices.Index(args, "--data-dir")
	if i < 0 || args[i+1] != cfg.General.DataDir {
		t.Fatalf("childArgs data dir = %v", args)
	}
}
