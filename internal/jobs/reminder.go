// Package jobs runs the periodic background work of the worker process.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/esumbrandon/Schnei/internal/format"
	"github.com/esumbrandon/Schnei/internal/notification"
	"github.com/esumbrandon/Schnei/internal/subscription"
)

// DefaultLeadDays is how far ahead reminders are created.
const DefaultLeadDays = 3

type SubscriptionSource interface {
	ListRenewingBetween(ctx context.Context, from, to time.Time, statuses []subscription.Status) ([]subscription.Subscription, error)
}

type NotificationSink interface {
	CreateIfAbsent(ctx context.Context, params notification.CreateParams) (notification.Notification, bool, error)
}

type EventTracker interface {
	ReminderSent(ctx context.Context, userID, subscriptionID uuid.UUID, kind string)
}

// ReminderJob turns upcoming bills into notifications, one per subscription
// and bill date.
type ReminderJob struct {
	subs     SubscriptionSource
	sink     NotificationSink
	tracker  EventTracker
	leadDays int
	log      *slog.Logger
}

func NewReminderJob(subs SubscriptionSource, sink NotificationSink, tracker EventTracker, leadDays int, log *slog.Logger) *ReminderJob {
	if log == nil {
		log = slog.Default()
	}
	if leadDays < 0 {
		leadDays = DefaultLeadDays
	}
	return &ReminderJob{subs: subs, sink: sink, tracker: tracker, leadDays: leadDays, log: log}
}

// Run creates the reminders due for today and returns how many were new.
func (j *ReminderJob) Run(ctx context.Context, today time.Time) (int, error) {
	today = subscription.DateOf(today)
	until := today.AddDate(0, 0, j.leadDays)

	due, err := j.subs.ListRenewingBetween(ctx, today, until, []subscription.Status{
		subscription.StatusActive,
		subscription.StatusTrial,
	})
	if err != nil {
		return 0, fmt.Errorf("list renewing subscriptions: %w", err)
	}

	created := 0
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		params := reminderFor(sub, today)
		_, isNew, err := j.sink.CreateIfAbsent(ctx, params)
		if err != nil {
			j.log.ErrorContext(ctx, "create reminder", "subscription_id", sub.ID, "error", err)
			continue
		}
		if !isNew {
			continue
		}

		created++
		if j.tracker != nil {
			j.tracker.ReminderSent(ctx, sub.UserID, sub.ID, string(params.Type))
		}
	}

	j.log.InfoContext(ctx, "reminders processed", "due", len(due), "created", created)
	return created, nil
}

func reminderFor(sub subscription.Subscription, today time.Time) notification.CreateParams {
	days := subscription.DaysUntil(sub.NextBillDate, today)
	when := strings.ToLower(format.RenewalLabel(days))
	billDate := subscription.DateOf(sub.NextBillDate)
	subID := sub.ID

	params := notification.CreateParams{
		UserID:         sub.UserID,
		SubscriptionID: &subID,
		ScheduledFor:   &billDate,
	}

	price := format.Currency(sub.Price, sub.Currency)
	date := format.Date(billDate)

	if sub.Status == subscription.StatusTrial {
		params.Type = notification.TypeTrialEnding
		params.Title = fmt.Sprintf("%s trial ends %s", sub.ServiceName, when)
		params.Message = fmt.Sprintf("Your %s trial ends on %s. You will be charged %s unless you cancel.", sub.ServiceName, date, price)
		return params
	}

	params.Type = notification.TypeRenewalReminder
	params.Title = fmt.Sprintf("%s renews %s", sub.ServiceName, when)
	params.Message = fmt.Sprintf("%s will charge %s on %s.", sub.ServiceName, price, date)
	return params
}
