package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/smartpay/internal/cli"
)

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Ask the remote service for a payment plan",
	RunE:  runAnalysis,
}

func init() {
	rootCmd.AddCommand(analysisCmd)
}

func runAnalysis(cmd *cobra.Command, _ []string) error {
	if flagOffline {
		return errors.New("analysis needs the remote service; drop --offline")
	}

	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Requesting payment plan...\n")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout())
	defer cancel()

	res := s.Analyze(ctx)
	if !res.Success {
		return errors.New(res.Error)
	}
	if res.Data == nil {
		return errors.New("the service returned an empty analysis")
	}
	a := res.Data

	fmt.Println()
	fmt.Println(cli.RenderTitle("PAYMENT PLAN  " + a.Profile.User))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Budget", "Amount"},
		Rows: [][]string{
			{"Monthly budget", a.Profile.MonthlyBudget},
			{"Reserve target", a.Profile.ReserveTarget},
			{"Assignable", a.Profile.AssignableBudget},
			{"---"},
			{"Total payments", a.Profile.TotalPayments},
			{"Reserve saved", a.Profile.ReserveSaved},
			{"Interest this cycle", a.Profile.EstimatedInterest},
		},
	}))
	fmt.Println()

	if len(a.Cards) > 0 {
		rows := make([][]string, 0, len(a.Cards))
		for _, c := range a.Cards {
			rows = append(rows, []string{
				c.Bank + " " + c.CardName,
				fmtr.Money(c.TotalBalance),
				fmtr.Money(c.Payment),
				fmtr.Money(c.NoInterestPayment),
				fmtr.Money(c.InterestGenerated),
				c.UtilizationBefore + " -> " + c.UtilizationAfter,
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Per card",
			Headers: []string{"Card", "Balance", "Pay", "No-interest", "Interest", "Utilization"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	if a.Feedback != "" {
		fmt.Printf("  %s\n\n", a.Feedback)
	}
	return nil
}
