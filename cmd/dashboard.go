package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/cli"
	"github.com/theirongolddev/smartpay/internal/daemon"
	"github.com/theirongolddev/smartpay/internal/finance"
)

// runDashboard prints the portfolio overview shown when no subcommand is given.
func runDashboard(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	snap := s.Snapshot()
	name := "there"
	if snap.User != nil {
		name = snap.User.FullName
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SMARTPAY  Hi, " + name))
	fmt.Println()

	if snap.User == nil {
		fmt.Println("  Your profile is incomplete. Run `smartpay onboard` to add your income.")
		fmt.Println()
	}
	if len(snap.Cards) == 0 {
		fmt.Println("  No cards yet. Add one with `smartpay cards add`.")
		fmt.Println()
		return nil
	}

	now := time.Now()
	p := finance.Summarize(snap.Cards, now)

	rows := [][]string{
		{"Cards", fmt.Sprintf("%d", p.Cards)},
		{"Total debt", fmtr.Money(p.TotalDebt)},
		{"Total limit", fmtr.Money(p.TotalLimit)},
		{"Available", fmtr.Money(max(p.TotalLimit-p.TotalDebt, 0))},
		{"Utilization", cli.FormatUtilization(p.Utilization, p.TotalLimit > 0)},
		{"---"},
		{"Minimum due", fmtr.Money(p.MinimumDue)},
		{"Interest (est)", fmtr.Money(p.EstimatedInterest)},
	}
	if p.NextDue != nil {
		rows = append(rows, []string{"Next payment",
			fmt.Sprintf("%s %s, %s", p.NextDue.Bank, p.NextDue.CardName, cli.FormatDaysUntil(p.NextDueDays))})
	}
	if snap.User != nil && snap.User.MonthlyIncome > 0 {
		rows = append(rows, []string{"---"})
		rows = append(rows, []string{"Monthly income", fmtr.Money(snap.User.MonthlyIncome)})
		rows = append(rows, []string{"Debt / income", cli.FormatPercent(p.TotalDebt / snap.User.MonthlyIncome)})
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Portfolio", "Value"}, Rows: rows}))
	fmt.Println()

	reminders := daemon.ComputeReminders(snap.Cards, now, cfg.Daemon.HorizonDays)
	if len(reminders) > 0 {
		rrows := make([][]string, 0, len(reminders))
		for _, r := range reminders {
			rrows = append(rrows, []string{
				r.Bank + " " + r.CardName,
				r.DueDate,
				cli.FormatDaysUntil(r.DaysLeft),
				fmtr.Money(r.MinimumPayment),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Due in the next %d days", cfg.Daemon.HorizonDays),
			Headers: []string{"Card", "Due", "When", "Minimum"},
			Rows:    rrows,
		}))
		fmt.Println()
	}
	return nil
}
