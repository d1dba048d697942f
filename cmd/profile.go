package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/cli"
	"github.com/theirongolddev/smartpay/internal/model"
	"github.com/theirongolddev/smartpay/internal/validator"
)

var (
	flagProfileName   string
	flagProfileEmail  string
	flagProfileIncome float64
	flagProfileDays   string
)

var incomeDayOptions = []string{"15 y 30", "Quincenal", "Mensual", "Semanal"}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Set up your profile: name, monthly income and pay days",
	RunE:  runOnboard,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the profile",
	RunE:  runProfileShow,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile",
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change profile fields from flags",
	RunE:  runProfileSet,
}

var profileClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the profile from this device",
	RunE:  runProfileClear,
}

func init() {
	for _, c := range []*cobra.Command{onboardCmd, profileSetCmd} {
		c.Flags().StringVar(&flagProfileName, "name", "", "Full name")
		c.Flags().StringVar(&flagProfileEmail, "email", "", "Contact email")
		c.Flags().Float64Var(&flagProfileIncome, "income", 0, "Monthly income")
		c.Flags().StringVar(&flagProfileDays, "income-days", "", `Pay days, e.g. "15 y 30"`)
	}

	profileCmd.AddCommand(profileShowCmd, profileSetCmd, profileClearCmd)
	rootCmd.AddCommand(onboardCmd, profileCmd)
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	var p model.UserProfile
	if u := s.User(); u != nil {
		p = *u
	}
	applyProfileFlags(cmd, &p)

	// The form is prefilled with the current profile and any flags given.
	if !cmd.Flags().Changed("name") || !cmd.Flags().Changed("income") {
		if err := runProfileForm(&p); err != nil {
			return err
		}
	}

	if err := validator.Struct(p); err != nil {
		return err
	}
	s.SetUser(&p)

	fmt.Printf("  Profile saved for %s (%s/month).\n", p.FullName, fmtr.Money(p.MonthlyIncome))
	return nil
}

func runProfileForm(p *model.UserProfile) error {
	income := ""
	if p.MonthlyIncome > 0 {
		income = strconv.FormatFloat(p.MonthlyIncome, 'f', -1, 64)
	}
	if p.IncomeDays == "" {
		p.IncomeDays = incomeDayOptions[0]
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Full name").Value(&p.FullName).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Email (optional)").Value(&p.Email),
		),
		huh.NewGroup(
			huh.NewInput().Title("Monthly income").Value(&income).Validate(validateAmount),
			huh.NewSelect[string]().Title("When are you paid?").
				Options(huh.NewOptions(incomeDayOptions...)...).
				Value(&p.IncomeDays),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	v, err := parseAmount(income)
	if err != nil {
		return err
	}
	p.MonthlyIncome = v
	return nil
}

func runProfileShow(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}
	u := s.User()
	if u == nil {
		fmt.Println("  No profile yet. Run `smartpay onboard`.")
		return nil
	}

	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Name", u.FullName},
		{"Email", orDash(u.Email)},
		{"Monthly income", fmtr.Money(u.MonthlyIncome)},
		{"Pay days", orDash(u.IncomeDays)},
	}))
	fmt.Println()
	return nil
}

func runProfileSet(cmd *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	var p model.UserProfile
	if u := s.User(); u != nil {
		p = *u
	}
	applyProfileFlags(cmd, &p)
	if err := validator.Struct(p); err != nil {
		return err
	}

	s.SetUser(&p)
	fmt.Println("  Profile updated.")
	return nil
}

func applyProfileFlags(cmd *cobra.Command, p *model.UserProfile) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.FullName = flagProfileName
	}
	if flags.Changed("email") {
		p.Email = flagProfileEmail
	}
	if flags.Changed("income") {
		p.MonthlyIncome = flagProfileIncome
	}
	if flags.Changed("income-days") {
		p.IncomeDays = flagProfileDays
	}
}

func runProfileClear(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}
	s.SetUser(nil)
	fmt.Println("  Profile removed.")
	return nil
}

// parseAmount accepts plain or grouped amounts such as "1,234.50" or "$900".
func parseAmount(raw string) (float64, error) {
	clean := strings.NewReplacer(",", "", "$", "", " ", "").Replace(raw)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q is not an amount", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("amount must not be negative")
	}
	return v, nil
}

func validateAmount(raw string) error {
	_, err := parseAmount(raw)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
