package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.BaseURL != "http://localhost:9000" {
		t.Fatalf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Workers != 1 {
		t.Fatalf("Workers = %d, want 1", cfg.Remote.Workers)
	}
	if cfg.Timeout() != 10*time.Second {
		t.Fatalf("Timeout = %s, want 10s", cfg.Timeout())
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartpay", "config.toml")

	cfg := DefaultConfig()
	cfg.Remote.BaseURL = "http://api.example:9000"
	cfg.Daemon.HorizonDays = 3
	cfg.General.DataDir = "/tmp/sp"
	if err := SaveFile(path, cfg); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Remote.BaseURL != cfg.Remote.BaseURL || got.Daemon.HorizonDays != 3 || got.General.DataDir != "/tmp/sp" {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" || cfg.Daemon.Schedule != "@every 1m" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[remote\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SMARTPAY_API_URL", "http://env:1234")
	t.Setenv("SMARTPAY_LOG_FORMAT", "json")
	t.Setenv("SMARTPAY_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Remote.BaseURL != "http://env:1234" {
		t.Fatalf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Log.Format != "json" || cfg.DevAPI.JWTSecret != "s3cret" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("Level = %q, want default info", cfg.Log.Level)
	}
}

func TestResolvedDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	cfg := DefaultConfig()
	if got := cfg.ResolvedDataDir(); got != filepath.Join("/xdg", "smartpay") {
		t.Fatalf("ResolvedDataDir = %q", got)
	}
	cfg.General.DataDir = "/custom"
	if got := cfg.ResolvedDataDir(); got != "/custom" {
		t.Fatalf("ResolvedDataDir = %q", got)
	}
}
