package subscription

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpendSummary is the aggregate spend over a set of subscriptions.
type SpendSummary struct {
	Monthly decimal.Decimal `json:"monthly_spend"`
	Annual  decimal.Decimal `json:"annual_spend"`
	// Unrecognized holds the IDs of records whose cadence fell back to monthly.
	Unrecognized []uuid.UUID `json:"-"`
}

// MonthlySpend sums the monthly cost of every subscription passed in.
// Callers decide which statuses count; nothing is excluded here.
func MonthlySpend(subs []Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subs {
		total = total.Add(NormalizeToMonthly(s.Price, s.Cadence))
	}
	return total
}

// AnnualSpend is MonthlySpend times twelve.
func AnnualSpend(subs []Subscription) decimal.Decimal {
	return MonthlySpend(subs).Mul(twelve)
}

// SummarizeSpend computes monthly and annual spend in one pass and reports
// every record that hit the unknown-cadence fallback.
func SummarizeSpend(subs []Subscription) SpendSummary {
	summary := SpendSummary{Monthly: decimal.Zero}
	for _, s := range subs {
		monthly, ok := MonthlyEquivalent(s.Price, s.Cadence)
		if !ok {
			summary.Unrecognized = append(summary.Unrecognized, s.ID)
		}
		summary.Monthly = summary.Monthly.Add(monthly)
	}
	summary.Annual = summary.Monthly.Mul(twelve)
	return summary
}

// FilterByStatus keeps the subscriptions whose status is one of statuses.
func FilterByStatus(subs []Subscription, statuses ...Status) []Subscription {
	out := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
