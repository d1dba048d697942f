// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLocale is used when the configured locale does not parse.
const DefaultLocale = "es-MX"

// Formatter renders money and counts for one locale.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a Formatter for a BCP 47 locale such as "es-MX".
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	return Formatter{p: message.NewPrinter(tag)}
}

// Money formats a peso amount with grouping and two decimals.
// e.g., 1234.5 -> "$1,234.50", -20 -> "-$20.00"
func (f Formatter) Money(v float64) string {
	if v < 0 {
		return "-" + f.Money(-v)
	}
	return f.p.Sprintf("$%.2f", math.Round(v*100)/100)
}

// Number formats an integer with grouping separators.
func (f Formatter) Number(n int64) string {
	return f.p.Sprintf("%d", n)
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatUtilization formats a utilization ratio, or "n/a" when undefined.
func FormatUtilization(u float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return FormatPercent(u)
}

// FormatDaysUntil describes a payment due offset in days.
// e.g., 0 -> "today", 1 -> "tomorrow", 5 -> "in 5 days", -2 -> "2 days overdue"
func FormatDaysUntil(days int) string {
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "1 day overdue"
	case days < 0:
		return fmt.Sprintf("%d days overdue", -days)
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
