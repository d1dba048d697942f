package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configuration wizard",
	RunE:  runSetup,
}

var (
	localeOptions   = []string{"es-MX", "en-US"}
	logLevelOptions = []string{"debug", "info", "warn", "error"}
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Start from the file, not from flag or env overrides.
	c, err := config.LoadFile(config.ConfigPath())
	if err != nil {
		return err
	}

	horizon := strconv.Itoa(c.Daemon.HorizonDays)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title("Welcome to smartpay!").
				Description("A few settings; press Enter to keep the defaults."),
			huh.NewInput().Title("Remote service URL").Value(&c.Remote.BaseURL).Validate(validateURL),
			huh.NewInput().Title("Data directory").Placeholder(config.DataDir()).Value(&c.General.DataDir),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Money format").
				Options(huh.NewOptions(localeOptions...)...).Value(&c.Appearance.Locale),
			huh.NewSelect[string]().Title("Log level").
				Options(huh.NewOptions(logLevelOptions...)...).Value(&c.Log.Level),
			huh.NewInput().Title("Remind me this many days before a payment").Value(&horizon).
				Validate(validateDays),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	c.Daemon.HorizonDays, _ = strconv.Atoi(horizon)

	if err := config.Save(c); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `smartpay setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter a URL like http://localhost:9000")
	}
	return nil
}

func validateDays(raw string) error {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 60 {
		return fmt.Errorf("enter a number of days between 1 and 60")
	}
	return nil
}

func maskSecret(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
