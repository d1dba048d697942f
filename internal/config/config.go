// Package config loads smartpay settings from the TOML file, .env and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all smartpay configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Remote     RemoteConfig     `toml:"remote"`
	Daemon     DaemonConfig     `toml:"daemon"`
	DevAPI     DevAPIConfig     `toml:"devapi"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir string `toml:"data_dir,omitempty"`
}

// RemoteConfig holds the remote service and outbox settings.
type RemoteConfig struct {
	BaseURL     string `toml:"base_url"`
	TimeoutSecs int    `toml:"timeout_secs"`
	Workers     int    `toml:"workers"`
	QueueSize   int    `toml:"queue_size"`
}

// DaemonConfig holds payment reminder daemon settings.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	Schedule    string `toml:"schedule"`
	HorizonDays int    `toml:"horizon_days"`
}

// DevAPIConfig holds settings of the development remote.
type DevAPIConfig struct {
	Addr      string `toml:"addr"`
	JWTSecret string `toml:"jwt_secret,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds output settings.
type AppearanceConfig struct {
	Locale string `toml:"locale"`
}

// Overrides are the environment variables that take precedence over the file.
type Overrides struct {
	APIURL    string `env:"SMARTPAY_API_URL"`
	DataDir   string `env:"SMARTPAY_DATA_DIR"`
	LogLevel  string `env:"SMARTPAY_LOG_LEVEL"`
	LogFormat string `env:"SMARTPAY_LOG_FORMAT"`
	JWTSecret string `env:"SMARTPAY_JWT_SECRET"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			BaseURL:     "http://localhost:9000",
			TimeoutSecs: 10,
			Workers:     1,
			QueueSize:   64,
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8787",
			Schedule:    "@every 1m",
			HorizonDays: 7,
		},
		DevAPI: DevAPIConfig{
			Addr: "127.0.0.1:9000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Locale: "es-MX",
		},
	}
}

// Timeout returns the per-request remote timeout.
func (c Config) Timeout() time.Duration {
	if c.Remote.TimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Remote.TimeoutSecs) * time.Second
}

// ResolvedDataDir returns the data directory, falling back to the XDG data dir.
func (c Config) ResolvedDataDir() string {
	if c.General.DataDir != "" {
		return c.General.DataDir
	}
	return DataDir()
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "smartpay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "smartpay")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "smartpay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "smartpay")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist, then applies
// .env and environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}

	// A missing .env is the common case.
	_ = godotenv.Load()

	var o Overrides
	if err := env.Parse(&o); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.Apply(o)
	return cfg, nil
}

// LoadFile reads one TOML file over the defaults without consulting the environment.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Apply copies the non-empty overrides into cfg.
func (c *Config) Apply(o Overrides) {
	if o.APIURL != "" {
		c.Remote.BaseURL = o.APIURL
	}
	if o.DataDir != "" {
		c.General.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
	if o.JWTSecret != "" {
		c.DevAPI.JWTSecret = o.JWTSecret
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to the given path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path is the user's own config file
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
