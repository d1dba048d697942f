package finance

import (
	"strings"
	"testing"

	"github.com/theirongolddev/smartpay/internal/model"
)

func TestBuildAnalysis_PaysMinimumsThenHighestRate(t *testing.T) {
	profile := model.UserProfile{FullName: "Ana", MonthlyIncome: 1000}
	cards := []model.CreditCard{
		{Bank: "BBVA", CardName: "Azul", Balance: 1000, CreditLimit: 5000, MinimumPayment: 50, InterestRate: 2},
		{Bank: "Klar", CardName: "Klar", Balance: 2000, CreditLimit: 5000, MinimumPayment: 100, InterestRate: 5},
	}

	a := BuildAnalysis(profile, cards)

	// 1000 income: 100 reserve, 900 budget; 150 minimums, 750 extra to Klar.
	if a.Profile.ReserveTarget != "100.00" || a.Profile.AssignableBudget != "900.00" {
		t.Fatalf("reserve/assignable = %s/%s, want 100.00/900.00", a.Profile.ReserveTarget, a.Profile.AssignableBudget)
	}
	if len(a.Cards) != 2 {
		t.Fatalf("len(Cards) = %d, want 2", len(a.Cards))
	}
	if a.Cards[0].Payment != 50 {
		t.Fatalf("Azul payment = %.2f, want 50", a.Cards[0].Payment)
	}
	if a.Cards[1].Payment != 850 {
		t.Fatalf("Klar payment = %.2f, want 850", a.Cards[1].Payment)
	}
	if a.Cards[1].InterestGenerated != 57.5 {
		t.Fatalf("Klar interest = %.2f, want 57.50", a.Cards[1].InterestGenerated)
	}
	if a.Cards[0].CardID != 1 || a.Cards[1].CardID != 2 {
		t.Fatalf("card ids = %d,%d, want 1,2", a.Cards[0].CardID, a.Cards[1].CardID)
	}
	if a.Cards[1].UtilizationBefore != "40.0%" || a.Cards[1].UtilizationAfter != "23.0%" {
		t.Fatalf("Klar utilization = %s -> %s, want 40.0%% -> 23.0%%", a.Cards[1].UtilizationBefore, a.Cards[1].UtilizationAfter)
	}
	if a.Profile.TotalPayments != "900.00" {
		t.Fatalf("TotalPayments = %s, want 900.00", a.Profile.TotalPayments)
	}
	if !strings.Contains(a.Feedback, "Klar") {
		t.Fatalf("feedback %q should point at the highest rate card", a.Feedback)
	}
}

func TestBuildAnalysis_ShortBudget(t *testing.T) {
	profile := model.UserProfile{FullName: "Ana", MonthlyIncome: 100}
	cards := []model.CreditCard{
		{CardName: "A", Balance: 1000, CreditLimit: 2000, MinimumPayment: 80, InterestRate: 3},
		{CardName: "B", Balance: 1000, CreditLimit: 2000, MinimumPayment: 80, InterestRate: 1},
	}

	a := BuildAnalysis(profile, cards)
	if a.Cards[0].Payment != 80 || a.Cards[1].Payment != 10 {
		t.Fatalf("payments = %.2f/%.2f, want 80/10", a.Cards[0].Payment, a.Cards[1].Payment)
	}
	if !strings.Contains(a.Feedback, "minimum") {
		t.Fatalf("feedback %q should warn about minimums", a.Feedback)
	}
}

func TestBuildAnalysis_NoCards(t *testing.T) {
	a := BuildAnalysis(model.UserProfile{FullName: "Ana", MonthlyIncome: 500}, nil)
	if len(a.Cards) != 0 {
		t.Fatalf("len(Cards) = %d, want 0", len(a.Cards))
	}
	if a.Profile.ReserveSaved != "500.00" {
		t.Fatalf("ReserveSaved = %s, want 500.00", a.Profile.ReserveSaved)
	}
}
