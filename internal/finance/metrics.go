// Package finance derives card metrics and payment plans from profiles and cards.
package finance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/theirongolddev/smartpay/internal/model"
)

// Utilization returns balance/creditLimit in the 0.0-1.0+ range.
// ok is false when the card has no positive credit limit.
func Utilization(c model.CreditCard) (float64, bool) {
	if c.CreditLimit <= 0 {
		return 0, false
	}
	return c.Balance / c.CreditLimit, true
}

// AvailableCredit returns the unused part of the limit, never negative.
func AvailableCredit(c model.CreditCard) float64 {
	return math.Max(c.CreditLimit-c.Balance, 0)
}

// EstimatedInterest is the interest one cycle adds to the current balance.
func EstimatedInterest(c model.CreditCard) float64 {
	return c.Balance * c.InterestRate / 100
}

// DaysUntilPayment returns the number of days from now to the card's next payment
// date, rounded up. Past dates give zero or negative values.
func DaysUntilPayment(c model.CreditCard, now time.Time) (int, error) {
	due, err := time.Parse(model.DateLayout, c.NextPaymentDate)
	if err != nil {
		return 0, fmt.Errorf("parsing payment date %q: %w", c.NextPaymentDate, err)
	}
	return int(math.Ceil(due.Sub(now).Hours() / 24)), nil
}

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	Category string
	Amount   float64
	Share    float64 // 0.0-1.0 of all charges
}

// CategoryBreakdown sums charges (positive amounts) per category, largest first.
// Payments and refunds are ignored.
func CategoryBreakdown(txs []model.Transaction) []CategoryTotal {
	totals := make(map[string]float64)
	var sum float64
	for _, tx := range txs {
		if tx.Amount <= 0 {
			continue
		}
		cat := tx.Category
		if cat == "" {
			cat = "Otros"
		}
		totals[cat] += tx.Amount
		sum += tx.Amount
	}

	out := make([]CategoryTotal, 0, len(totals))
	for cat, amt := range totals {
		out = append(out, CategoryTotal{Category: cat, Amount: amt, Share: amt / sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Portfolio aggregates all cards of a session.
type Portfolio struct {
	Cards             int
	TotalDebt         float64
	TotalLimit        float64
	MinimumDue        float64
	EstimatedInterest float64
	Utilization       float64 // 0 when TotalLimit is 0
	NextDue           *model.CreditCard
	NextDueDays       int
}

// Summarize builds the dashboard totals. Cards with unparseable payment dates are
// skipped when picking the next due card.
func Summarize(cards []model.CreditCard, now time.Time) Portfolio {
	p := Portfolio{Cards: len(cards)}
	for i := range cards {
		c := cards[i]
		p.TotalDebt += c.Balance
		p.TotalLimit += c.CreditLimit
		p.MinimumDue += c.MinimumPayment
		p.EstimatedInterest += EstimatedInterest(c)

		days, err := DaysUntilPayment(c, now)
		if err != nil || days < 0 {
			continue
		}
		if p.NextDue == nil || days < p.NextDueDays {
			p.NextDue = &cards[i]
			p.NextDueDays = days
		}
	}
	if p.TotalLimit > 0 {
		p.Utilization = p.TotalDebt / p.TotalLimit
	}
	return p
}
