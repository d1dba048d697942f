package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory: %s\n", cfg.ResolvedDataDir())
	fmt.Println()

	fmt.Println("  [Remote]")
	fmt.Printf("    Base URL:   %s\n", cfg.Remote.BaseURL)
	fmt.Printf("    Timeout:    %s\n", cfg.Timeout())
	fmt.Printf("    Workers:    %d\n", cfg.Remote.Workers)
	fmt.Printf("    Queue size: %d\n", cfg.Remote.QueueSize)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Schedule: %s\n", cfg.Daemon.Schedule)
	fmt.Printf("    Horizon:  %d days\n", cfg.Daemon.HorizonDays)
	fmt.Println()

	fmt.Println("  [Dev API]")
	fmt.Printf("    Address:    %s\n", cfg.DevAPI.Addr)
	if cfg.DevAPI.JWTSecret != "" {
		fmt.Printf("    JWT secret: %s\n", maskSecret(cfg.DevAPI.JWTSecret))
	} else {
		fmt.Println("    JWT secret: random per run")
	}
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:  %s\n", cfg.Log.Level)
	fmt.Printf("    Format: %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Locale: %s\n", cfg.Appearance.Locale)
	fmt.Println()

	fmt.Println("  Run `smartpay setup` to reconfigure.")
	return nil
}
