// Package format renders amounts, dates and labels for display. Amounts are
// always shown in the currency they were recorded in; nothing is converted.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const longDate = "January 2, 2006"

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats amount in the given ISO-4217 currency using en-US
// conventions, e.g. "$1,234.50" or "€9.99". An empty code means USD.
// Unrecognized codes render as "CODE 12.34".
func Currency(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + amount.StringFixed(2)
	}

	scale, _ := currency.Standard.Rounding(unit)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	f, _ := amount.Round(int32(scale)).Float64()

	symbol := printer.Sprint(currency.Symbol(unit))
	return sign + symbol + printer.Sprint(number.Decimal(f, number.Scale(scale)))
}

// Date renders t as a long-form calendar date such as "March 5, 2025".
func Date(t time.Time) string {
	return t.Format(longDate)
}

// RenewalLabel describes how far away a bill date is.
func RenewalLabel(days int) string {
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Overdue by 1 day"
	case days < 0:
		return fmt.Sprintf("Overdue by %d days", -days)
	default:
		return fmt.Sprintf("In %d days", days)
	}
}

// Truncate shortens s to at most length runes, appending "..." when cut.
func Truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}

// Initials returns up to two upper-case initials of name.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, part := range strings.Fields(name) {
		b.WriteRune(unicode.ToUpper([]rune(part)[0]))
		if n++; n == 2 {
			break
		}
	}
	return b.String()
}
