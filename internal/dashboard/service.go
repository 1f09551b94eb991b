// Package dashboard computes the per-user summary shown on the landing view.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esumbrandon/Schnei/internal/cache"
	"github.com/esumbrandon/Schnei/internal/format"
	"github.com/esumbrandon/Schnei/internal/subscription"
)

const (
	// MixedCurrency marks totals summed over records billed in different currencies.
	MixedCurrency = "mixed"

	upcomingLimit = 5
	dateLayout    = "2006-01-02"
)

// Store is the read side of the subscription repository the dashboard needs.
type Store interface {
	List(ctx context.Context, userID uuid.UUID, opts subscription.ListOptions) ([]subscription.Subscription, int, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]subscription.Subscription, error)
}

// Clock supplies the reference calendar date.
type Clock interface {
	Today() time.Time
}

type Insight struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type UpcomingItem struct {
	ID             uuid.UUID            `json:"id"`
	ServiceName    string               `json:"service_name"`
	Price          decimal.Decimal      `json:"price"`
	Currency       string               `json:"currency"`
	FormattedPrice string               `json:"formatted_price"`
	Cadence        subscription.Cadence `json:"cadence"`
	NextBillDate   string               `json:"next_bill_date"`
	FormattedDate  string               `json:"formatted_date"`
	DaysUntil      int                  `json:"days_until"`
	RenewalLabel   string               `json:"renewal_label"`
}

type Stats struct {
	AsOf                  string          `json:"as_of"`
	TotalSubscriptions    int             `json:"total_subscriptions"`
	ActiveSubscriptions   int             `json:"active_subscriptions"`
	VerifiedSubscriptions int             `json:"verified_subscriptions"`
	MonthlySpend          decimal.Decimal `json:"monthly_spend"`
	AnnualSpend           decimal.Decimal `json:"annual_spend"`
	FormattedMonthly      string          `json:"formatted_monthly_spend"`
	FormattedAnnual       string          `json:"formatted_annual_spend"`
	Currency              string          `json:"currency"`
	UpcomingCount         int             `json:"upcoming_count"`
	UpcomingRenewals      []UpcomingItem  `json:"upcoming_renewals"`
	PotentialSavings      decimal.Decimal `json:"potential_savings"`
	Insights              []Insight       `json:"insights"`
}

type Service struct {
	store Store
	cache cache.SummaryCache
	clock Clock
	log   *slog.Logger
}

func NewService(store Store, summaries cache.SummaryCache, clock Clock, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if summaries == nil {
		summaries = cache.NoopCache{}
	}
	return &Service{store: store, cache: summaries, clock: clock, log: log}
}

// Stats returns the summary for userID, served from cache while it is still
// for the current day.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	today := s.clock.Today()
	asOf := today.Format(dateLayout)

	var cached Stats
	version, hit, err := s.cache.Get(ctx, userID, &cached)
	if err != nil {
		s.log.WarnContext(ctx, "dashboard cache read failed", "user_id", userID, "error", err)
	}
	if hit && cached.AsOf == asOf {
		return cached, nil
	}

	active, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("load active subscriptions: %w", err)
	}

	_, total, err := s.store.List(ctx, userID, subscription.ListOptions{Limit: 1})
	if err != nil {
		return Stats{}, fmt.Errorf("count subscriptions: %w", err)
	}

	stats, unrecognized := compute(active, today)
	stats.TotalSubscriptions = total
	if len(unrecognized) > 0 {
		s.log.WarnContext(ctx, "unrecognized cadence counted at face value",
			"user_id", userID, "subscription_ids", unrecognized)
	}

	if err := s.cache.Set(ctx, userID, version, stats); err != nil {
		s.log.WarnContext(ctx, "dashboard cache write failed", "user_id", userID, "error", err)
	}
	return stats, nil
}

// Compute derives the dashboard figures from a user's active subscriptions.
// TotalSubscriptions is left to the caller.
func Compute(active []subscription.Subscription, today time.Time) Stats {
	stats, _ := compute(active, today)
	return stats
}

func compute(active []subscription.Subscription, today time.Time) (Stats, []uuid.UUID) {
	spend := subscription.SummarizeSpend(active)
	currency := commonCurrency(active)

	stats := Stats{
		AsOf:                today.Format(dateLayout),
		ActiveSubscriptions: len(active),
		MonthlySpend:        spend.Monthly.Round(2),
		AnnualSpend:         spend.Annual.Round(2),
		Currency:            currency,
		PotentialSavings:    decimal.Zero,
		UpcomingRenewals:    []UpcomingItem{},
	}

	for _, sub := range active {
		if sub.Verified {
			stats.VerifiedSubscriptions++
		}
	}

	if currency == MixedCurrency {
		stats.FormattedMonthly = stats.MonthlySpend.StringFixed(2)
		stats.FormattedAnnual = stats.AnnualSpend.StringFixed(2)
	} else {
		stats.FormattedMonthly = format.Currency(stats.MonthlySpend, currency)
		stats.FormattedAnnual = format.Currency(stats.AnnualSpend, currency)
	}

	renewals := subscription.UpcomingRenewals(active, today, subscription.RenewalWindow{
		Days: subscription.DefaultRenewalWindow,
	})
	stats.UpcomingCount = len(renewals)
	for i, r := range renewals {
		if i == upcomingLimit {
			break
		}
		stats.UpcomingRenewals = append(stats.UpcomingRenewals, UpcomingItem{
			ID:             r.ID,
			ServiceName:    r.ServiceName,
			Price:          r.Price,
			Currency:       r.Currency,
			FormattedPrice: format.Currency(r.Price, r.Currency),
			Cadence:        r.Cadence,
			NextBillDate:   r.NextBillDate.Format(dateLayout),
			FormattedDate:  format.Date(r.NextBillDate),
			DaysUntil:      r.DaysUntil,
			RenewalLabel:   format.RenewalLabel(r.DaysUntil),
		})
	}

	stats.Insights = insights(len(active))
	return stats, spend.Unrecognized
}

func commonCurrency(subs []subscription.Subscription) string {
	if len(subs) == 0 {
		return "USD"
	}
	code := subs[0].Currency
	for _, s := range subs[1:] {
		if s.Currency != code {
			return MixedCurrency
		}
	}
	return code
}

func insights(active int) []Insight {
	out := []Insight{{
		Kind:    "review",
		Title:   "Review your subscriptions",
		Message: "Check if you're still using all your active subscriptions",
	}}
	if active > 0 {
		noun := "subscriptions"
		if active == 1 {
			noun = "subscription"
		}
		out = append(out, Insight{
			Kind:    "progress",
			Title:   "Great start!",
			Message: fmt.Sprintf("You've added %d %s. Keep tracking to maximize savings.", active, noun),
		})
	}
	return append(out, Insight{
		Kind:    "reminders",
		Title:   "Set up reminders",
		Message: "Enable email notifications to never miss a renewal date",
	})
}
