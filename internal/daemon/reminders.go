package daemon

import (
	"sort"
	"time"

	"github.com/theirongolddev/smartpay/internal/finance"
	"github.com/theirongolddev/smartpay/internal/model"
)

// Reminder is a card whose payment falls due within the horizon.
type Reminder struct {
	CardID         string  `json:"card_id"`
	Bank           string  `json:"bank"`
	CardName       string  `json:"card_name"`
	DueDate        string  `json:"due_date"`
	DaysLeft       int     `json:"days_left"`
	Overdue        bool    `json:"overdue"`
	MinimumPayment float64 `json:"minimum_payment"`
	Balance        float64 `json:"balance"`
}

// Snapshot is the reminder state computed by one poll.
type Snapshot struct {
	At          time.Time  `json:"at"`
	Cards       int        `json:"cards"`
	TotalDebt   float64    `json:"total_debt"`
	TotalLimit  float64    `json:"total_limit"`
	Utilization float64    `json:"utilization"`
	Reminders   []Reminder `json:"reminders"`
}

// Delta lists the card ids whose reminders changed between polls.
type Delta struct {
	Added   []string `json:"added,omitempty"`
	Cleared []string `json:"cleared,omitempty"`
	Updated []string `json:"updated,omitempty"`
}

func (d Delta) isZero() bool {
	return len(d.Added) == 0 && len(d.Cleared) == 0 && len(d.Updated) == 0
}

// ComputeReminders returns reminders for cards due within horizonDays of now,
// overdue cards included, ordered by due date. Cards with unreadable dates are skipped.
func ComputeReminders(cards []model.CreditCard, now time.Time, horizonDays int) []Reminder {
	out := []Reminder{}
	for _, c := range cards {
		days, err := finance.DaysUntilPayment(c, now)
		if err != nil || days > horizonDays {
			continue
		}
		out = append(out, Reminder{
			CardID:         c.ID,
			Bank:           c.Bank,
			CardName:       c.CardName,
			DueDate:        c.NextPaymentDate,
			DaysLeft:       days,
			Overdue:        days < 0,
			MinimumPayment: c.MinimumPayment,
			Balance:        c.Balance,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysLeft != out[j].DaysLeft {
			return out[i].DaysLeft < out[j].DaysLeft
		}
		return out[i].CardID < out[j].CardID
	})
	return out
}

func snapshotFromCards(cards []model.CreditCard, now time.Time, horizonDays int) Snapshot {
	p := finance.Summarize(cards, now)
	return Snapshot{
		At:          now,
		Cards:       p.Cards,
		TotalDebt:   p.TotalDebt,
		TotalLimit:  p.TotalLimit,
		Utilization: p.Utilization,
		Reminders:   ComputeReminders(cards, now, horizonDays),
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	before := make(map[string]Reminder, len(prev.Reminders))
	for _, r := range prev.Reminders {
		before[r.CardID] = r
	}

	var d Delta
	for _, r := range curr.Reminders {
		old, ok := before[r.CardID]
		switch {
		case !ok:
			d.Added = append(d.Added, r.CardID)
		case old.DueDate != r.DueDate || old.DaysLeft != r.DaysLeft || old.MinimumPayment != r.MinimumPayment:
			d.Updated = append(d.Updated, r.CardID)
		}
		delete(before, r.CardID)
	}
	for id := range before {
		d.Cleared = append(d.Cleared, id)
	}
	sort.Strings(d.Cleared)
	return d
}
