package finance

import (
	"fmt"
	"math"
	"sort"

	"github.com/theirongolddev/smartpay/internal/model"
)

// ReserveRate is the share of monthly income set aside before paying cards.
const ReserveRate = 0.10

// BuildAnalysis splits the profile's monthly income into a reserve and card payments.
// Minimum payments are covered first (highest interest first when the budget is
// short); whatever is left goes to the most expensive balances.
func BuildAnalysis(profile model.UserProfile, cards []model.CreditCard) model.Analysis {
	income := math.Max(profile.MonthlyIncome, 0)
	reserve := round2(income * ReserveRate)
	budget := income - reserve

	order := make([]int, len(cards))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cards[order[a]].InterestRate > cards[order[b]].InterestRate
	})

	payments := make([]float64, len(cards))
	for _, i := range order {
		due := math.Min(cards[i].MinimumPayment, cards[i].Balance)
		pay := math.Min(due, budget)
		payments[i] = pay
		budget -= pay
	}
	minimumsCovered := true
	for i, c := range cards {
		if payments[i] < math.Min(c.MinimumPayment, c.Balance) {
			minimumsCovered = false
		}
	}
	for _, i := range order {
		if budget <= 0 {
			break
		}
		extra := math.Min(cards[i].Balance-payments[i], budget)
		payments[i] += extra
		budget -= extra
	}

	var totalPaid, totalInterest float64
	allPaidOff := true
	plans := make([]model.CardPlan, len(cards))
	for i, c := range cards {
		pay := round2(payments[i])
		remaining := c.Balance - pay
		if remaining > 0.005 {
			allPaidOff = false
		}
		interest := round2(math.Max(remaining, 0) * c.InterestRate / 100)
		totalPaid += pay
		totalInterest += interest

		plans[i] = model.CardPlan{
			CardName:          c.CardName,
			Bank:              c.Bank,
			CardID:            i + 1,
			Payment:           pay,
			InterestGenerated: interest,
			NoInterestPayment: round2(c.Balance),
			TotalBalance:      round2(c.Balance),
			CreditLimit:       round2(c.CreditLimit),
			UtilizationBefore: formatUtilization(c.Balance, c.CreditLimit),
			UtilizationAfter:  formatUtilization(remaining, c.CreditLimit),
		}
	}

	saved := reserve + math.Max(budget, 0)

	return model.Analysis{
		Message: "analysis complete",
		Profile: model.PlanProfile{
			User:              profile.FullName,
			MonthlyBudget:     money(income),
			ReserveTarget:     money(reserve),
			AssignableBudget:  money(income - reserve),
			TotalPayments:     money(totalPaid),
			ReserveSaved:      money(saved),
			EstimatedInterest: money(totalInterest),
		},
		Feedback: feedback(cards, order, minimumsCovered, allPaidOff),
		Cards:    plans,
	}
}

func feedback(cards []model.CreditCard, order []int, minimumsCovered, allPaidOff bool) string {
	switch {
	case len(cards) == 0:
		return "No cards registered yet. Add a card to get a payment plan."
	case allPaidOff:
		return "Your budget covers every balance this cycle. Paying in full avoids all interest."
	case !minimumsCovered:
		return "Your budget does not cover every minimum payment. Prioritize minimums to avoid late fees."
	default:
		top := cards[order[0]]
		return fmt.Sprintf("Minimums are covered. Extra money goes to %s %s first, it has the highest rate (%.1f%% monthly).",
			top.Bank, top.CardName, top.InterestRate)
	}
}

func formatUtilization(balance, limit float64) string {
	if limit <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", math.Max(balance, 0)/limit*100)
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
