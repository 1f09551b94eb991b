package subscription

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cadence is the recurrence interval of a charge.
type Cadence string

const (
	CadenceDaily     Cadence = "daily"
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
)

// Cadences lists every supported cadence in ascending interval order.
var Cadences = []Cadence{CadenceDaily, CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceAnnual}

var (
	thirty = decimal.NewFromInt(30)
	four   = decimal.NewFromInt(4)
	three  = decimal.NewFromInt(3)
	twelve = decimal.NewFromInt(12)
)

// Valid reports whether c is one of the known cadences.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceAnnual:
		return true
	}
	return false
}

// ParseCadence converts raw input into a Cadence.
func ParseCadence(raw string) (Cadence, error) {
	c := Cadence(raw)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCadence, raw)
	}
	return c, nil
}

// MonthlyEquivalent converts price into its monthly cost. The conversion uses
// 30-day and 4-week months; aggregate figures depend on exactly these factors.
// ok is false when the cadence is not recognized, in which case price is
// returned unchanged.
func MonthlyEquivalent(price decimal.Decimal, c Cadence) (monthly decimal.Decimal, ok bool) {
	switch c {
	case CadenceDaily:
		return price.Mul(thirty), true
	case CadenceWeekly:
		return price.Mul(four), true
	case CadenceMonthly:
		return price, true
	case CadenceQuarterly:
		return price.Div(three), true
	case CadenceAnnual:
		return price.Div(twelve), true
	default:
		return price, false
	}
}

// NormalizeToMonthly returns the monthly cost of price billed at cadence c.
// Unknown cadences are treated as already monthly; use MonthlyEquivalent or
// SummarizeSpend to find out when that happened.
func NormalizeToMonthly(price decimal.Decimal, c Cadence) decimal.Decimal {
	monthly, _ := MonthlyEquivalent(price, c)
	return monthly
}
