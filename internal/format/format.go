// Package format renders amounts, dates and budget statuses for display. All
// output is localized for French users.
package format

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BudgetStatus classifies how far along a category's spending is.
type BudgetStatus string

// Budget status levels.
const (
	StatusSafe    BudgetStatus = "safe"
	StatusWarning BudgetStatus = "warning"
	StatusDanger  BudgetStatus = "danger"
)

var frenchPrinter = message.NewPrinter(language.French)

// Currency formats an amount with two decimals and the currency symbol, in
// French conventions (comma decimal separator, symbol after the amount).
func Currency(amount float64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.EUR
	}
	return frenchPrinter.Sprintf("%.2f %v", amount, currency.Symbol(unit))
}

var frenchShortMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// RelativeDate renders a date relative to now for recent days, falling back
// to a short day-month form beyond a week.
func RelativeDate(date, now time.Time) string {
	days := int(now.Sub(date).Hours() / 24)
	switch {
	case days == 0:
		return "Aujourd'hui"
	case days == 1:
		return "Hier"
	case days < 7:
		return fmt.Sprintf("Il y a %d jours", days)
	default:
		return fmt.Sprintf("%02d %s", date.Day(), frenchShortMonths[date.Month()-1])
	}
}

// Percentage returns value as a whole percentage of total, rounded. A zero
// total yields zero.
func Percentage(value, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(value / total * 100))
}

// RemainingBudget describes what is left of an allocation, or by how much it
// was exceeded.
func RemainingBudget(allocated, spent float64) string {
	remaining := allocated - spent
	if remaining >= 0 {
		return fmt.Sprintf("%.0f€ restants", remaining)
	}
	return fmt.Sprintf("Dépassé de %.0f€", math.Abs(remaining))
}

// Status maps a spending percentage to a status level.
func Status(percentage int) BudgetStatus {
	switch {
	case percentage >= 100:
		return StatusDanger
	case percentage >= 80:
		return StatusWarning
	default:
		return StatusSafe
	}
}

// StatusColor returns the display color for a status level.
func StatusColor(status BudgetStatus) string {
	switch status {
	case StatusWarning:
		return "#f59e0b"
	case StatusDanger:
		return "#dc2626"
	default:
		return "#059669"
	}
}
