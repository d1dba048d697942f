package finance

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/smartpay/internal/model"
)

func azul() model.CreditCard {
	return model.CreditCard{
		ID:              "c1",
		Bank:            "BBVA",
		CardName:        "Azul",
		Balance:         1000,
		CreditLimit:     5000,
		NextPaymentDate: "2025-01-15",
		MinimumPayment:  50,
		InterestRate:    3.5,
	}
}

func TestUtilization(t *testing.T) {
	u, ok := Utilization(azul())
	if !ok {
		t.Fatal("Utilization returned !ok for positive limit")
	}
	if math.Abs(u-0.2) > 1e-9 {
		t.Fatalf("Utilization = %.4f, want 0.2", u)
	}

	c := azul()
	c.CreditLimit = 0
	if _, ok := Utilization(c); ok {
		t.Fatal("Utilization should be undefined for zero limit")
	}
}

func TestAvailableCreditAndInterest(t *testing.T) {
	c := azul()
	if got := AvailableCredit(c); got != 4000 {
		t.Fatalf("AvailableCredit = %.2f, want 4000", got)
	}
	if got := EstimatedInterest(c); math.Abs(got-35) > 1e-9 {
		t.Fatalf("EstimatedInterest = %.2f, want 35", got)
	}

	c.Balance = 6000
	if got := AvailableCredit(c); got != 0 {
		t.Fatalf("AvailableCredit over limit = %.2f, want 0", got)
	}
}

func TestDaysUntilPayment_RoundsUp(t *testing.T) {
	now := time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)
	days, err := DaysUntilPayment(azul(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 5 {
		t.Fatalf("DaysUntilPayment = %d, want 5", days)
	}

	c := azul()
	c.NextPaymentDate = "soon"
	if _, err := DaysUntilPayment(c, now); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []model.Transaction{
		{Category: "Comida", Amount: 300},
		{Category: "Transporte", Amount: 100},
		{Category: "Comida", Amount: 100},
		{Category: "", Amount: 100},
		{Category: "Pago", Amount: -500},
	}

	got := CategoryBreakdown(txs)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (%+v)", len(got), got)
	}
	if got[0].Category != "Comida" || got[0].Amount != 400 {
		t.Fatalf("first = %+v, want Comida 400", got[0])
	}
	if math.Abs(got[0].Share-400.0/600.0) > 1e-9 {
		t.Fatalf("Comida share = %.4f, want %.4f", got[0].Share, 400.0/600.0)
	}
	if got[1].Category != "Otros" || got[2].Category != "Transporte" {
		t.Fatalf("tie order = [%s, %s], want [Otros, Transporte]", got[1].Category, got[2].Category)
	}
}

func TestSummarize(t *testing.T) {
	a := azul()
	b := model.CreditCard{
		ID: "c2", Bank: "HSBC", CardName: "Zero",
		Balance: 500, CreditLimit: 5000, NextPaymentDate: "2025-01-12",
		MinimumPayment: 25, InterestRate: 4,
	}
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	p := Summarize([]model.CreditCard{a, b}, now)
	if p.Cards != 2 {
		t.Fatalf("Cards = %d, want 2", p.Cards)
	}
	if p.TotalDebt != 1500 || p.TotalLimit != 10000 || p.MinimumDue != 75 {
		t.Fatalf("totals = %.0f/%.0f/%.0f, want 1500/10000/75", p.TotalDebt, p.TotalLimit, p.MinimumDue)
	}
	if math.Abs(p.Utilization-0.15) > 1e-9 {
		t.Fatalf("Utilization = %.4f, want 0.15", p.Utilization)
	}
	if p.NextDue == nil || p.NextDue.ID != "c2" || p.NextDueDays != 2 {
		t.Fatalf("NextDue = %+v (%d days), want c2 in 2 days", p.NextDue, p.NextDueDays)
	}
}
