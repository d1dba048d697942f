package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/app"
	"github.com/theirongolddev/smartpay/internal/cli"
	"github.com/theirongolddev/smartpay/internal/remote"
	"github.com/theirongolddev/smartpay/internal/validator"
)

var (
	flagEmail    string
	flagPassword string
	flagFullName string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a local account and log in",
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a registered account",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the profile and cards on this device",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the session state",
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&flagEmail, "email", "", "Account email")
		c.Flags().StringVar(&flagPassword, "password", "", "Account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVar(&flagFullName, "name", "", "Full name")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}

func runRegister(_ *cobra.Command, _ []string) error {
	if flagEmail == "" || flagPassword == "" || flagFullName == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Full name").Value(&flagFullName).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Email").Value(&flagEmail).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&flagPassword).
				Validate(huh.ValidateMinLength(6)),
		))
		if err := form.Run(); err != nil {
			return err
		}
	}

	req := remote.RegisterRequest{Email: flagEmail, Password: flagPassword, FullName: flagFullName}
	if err := validator.Struct(req); err != nil {
		return err
	}

	s := openSession()
	defer s.Close()

	if err := s.Register(req.Email, req.Password, req.FullName); err != nil {
		if errors.Is(err, app.ErrEmailTaken) {
			return fmt.Errorf("%s is already registered; use `smartpay login`", req.Email)
		}
		return err
	}

	fmt.Printf("  Welcome, %s! You are logged in.\n", req.FullName)
	if s.User() == nil {
		fmt.Println("  Next: run `smartpay onboard` to set up your income.")
	}
	return nil
}

func runLogin(_ *cobra.Command, _ []string) error {
	if flagEmail == "" || flagPassword == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Email").Value(&flagEmail).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&flagPassword),
		))
		if err := form.Run(); err != nil {
			return err
		}
	}

	s := openSession()
	defer s.Close()

	if err := s.Login(flagEmail, flagPassword); err != nil {
		return err
	}
	fmt.Printf("  Logged in as %s\n", flagEmail)
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	s.Logout()
	fmt.Println("  Logged out. Profile and cards were removed from this device.")
	return nil
}

func runWhoami(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	snap := s.Snapshot()
	pairs := [][2]string{{"Logged in", fmt.Sprintf("%v", snap.Authenticated)}}
	if snap.User != nil {
		pairs = append(pairs, [2]string{"Name", snap.User.FullName})
		if snap.User.Email != "" {
			pairs = append(pairs, [2]string{"Email", snap.User.Email})
		}
	} else {
		pairs = append(pairs, [2]string{"Profile", "not set"})
	}
	pairs = append(pairs,
		[2]string{"Cards", fmt.Sprintf("%d", len(snap.Cards))},
		[2]string{"Database", dbPath()},
	)
	if flagOffline {
		pairs = append(pairs, [2]string{"Remote", "offline"})
	} else {
		pairs = append(pairs, [2]string{"Remote", cfg.Remote.BaseURL})
	}

	fmt.Println()
	fmt.Print(cli.RenderKV(pairs))
	fmt.Println()
	return nil
}
