package subscription

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	layoutDate = "2006-01-02"
	day        = 24 * time.Hour

	// DefaultRenewalWindow is the lookahead used by the dashboard.
	DefaultRenewalWindow = 7
)

// DateOf truncates t to midnight UTC of its calendar date in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: date value cannot be empty", ErrInvalidDate)
	}
	t, err := time.Parse(layoutDate, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q must be in YYYY-MM-DD format", ErrInvalidDate, value)
	}
	return t, nil
}

// DaysUntil returns the whole number of calendar days from today to target.
// Both values are truncated to their calendar date first, so today is 0,
// tomorrow is 1 and yesterday is -1 regardless of time of day.
func DaysUntil(target, today time.Time) int {
	return int(DateOf(target).Sub(DateOf(today)) / day)
}

// RenewalWindow configures UpcomingRenewals.
type RenewalWindow struct {
	// Days is the lookahead; records with DaysUntil <= Days are kept.
	Days int
	// IncludeOverdue keeps records whose bill date is already past.
	IncludeOverdue bool
}

// Renewal pairs a subscription with its distance from today.
type Renewal struct {
	Subscription
	DaysUntil int `json:"days_until"`
}

// UpcomingRenewals selects the subscriptions billing within the window and
// sorts them by bill date. The sort is stable: records sharing a bill date
// keep their input order.
func UpcomingRenewals(subs []Subscription, today time.Time, w RenewalWindow) []Renewal {
	out := make([]Renewal, 0, len(subs))
	for _, s := range subs {
		days := DaysUntil(s.NextBillDate, today)
		if days > w.Days {
			continue
		}
		if days < 0 && !w.IncludeOverdue {
			continue
		}
		out = append(out, Renewal{Subscription: s, DaysUntil: days})
	}
	slices.SortStableFunc(out, func(a, b Renewal) int {
		return DateOf(a.NextBillDate).Compare(DateOf(b.NextBillDate))
	})
	return out
}

// IsUpcoming reports whether days falls inside the list view's badge range.
func IsUpcoming(days int) bool {
	return days >= 0 && days <= DefaultRenewalWindow
}
