// Package analytics records product events in Postgres and forwards them to the event bus.
package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/esumbrandon/Schnei/internal/eventbus"
)

const (
	EventSubscriptionAdded     = "Subscription Added"
	EventSubscriptionUpdated   = "Subscription Updated"
	EventSubscriptionCancelled = "Subscription Cancelled"
	EventSubscriptionDeleted   = "Subscription Deleted"
	EventDashboardViewed       = "Dashboard Viewed"
	EventUserIdentified        = "User Identified"
	EventReminderSent          = "Reminder Sent"
)

const sourceAPI = "api"

// Event is one tracked action.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	Name       string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
	Source     string         `json:"source"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventStore persists events.
type EventStore interface {
	Insert(ctx context.Context, e Event) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, e Event) error {
	metadata, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}

	const q = `
		INSERT INTO events (id, user_id, action, source, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, q, e.ID, e.UserID, e.Name, e.Source, metadata, e.OccurredAt); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Tracker fans an event out to the store and the bus. Failures are logged,
// never returned.
type Tracker struct {
	store EventStore
	bus   eventbus.Publisher
	log   *slog.Logger
	now   func() time.Time
}

func NewTracker(store EventStore, bus eventbus.Publisher, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{store: store, bus: bus, log: log, now: time.Now}
}

func (t *Tracker) Track(ctx context.Context, userID uuid.UUID, name string, props map[string]any) {
	e := Event{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Properties: props,
		Source:     sourceAPI,
		OccurredAt: t.now().UTC(),
	}

	if t.store != nil {
		if err := t.store.Insert(ctx, e); err != nil {
			t.log.Error("failed to store event", "event", name, "user_id", userID, "error", err)
		}
	}

	if t.bus == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		t.log.Error("failed to encode event", "event", name, "error", err)
		return
	}
	if err := t.bus.Publish(ctx, RoutingKey(name), payload); err != nil {
		t.log.Warn("failed to publish event", "event", name, "user_id", userID, "error", err)
	}
}

// Identify attaches traits to a user.
func (t *Tracker) Identify(ctx context.Context, userID uuid.UUID, traits map[string]any) {
	t.Track(ctx, userID, EventUserIdentified, traits)
}

// RoutingKey maps "Subscription Added" to "analytics.subscription_added".
func RoutingKey(name string) string {
	var b strings.Builder
	b.WriteString("analytics.")
	underscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if underscore {
				b.WriteByte('_')
				underscore = false
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			underscore = b.Len() > len("analytics.")
		}
	}
	return b.String()
}

// SubscriptionAdded records a new subscription and how it was entered
// (manual, email, bank).
func (t *Tracker) SubscriptionAdded(ctx context.Context, userID uuid.UUID, method, serviceName, cadence string) {
	t.Track(ctx, userID, EventSubscriptionAdded, map[string]any{
		"method":       method,
		"service_name": serviceName,
		"cadence":      cadence,
	})
}

func (t *Tracker) SubscriptionUpdated(ctx context.Context, userID, subscriptionID uuid.UUID) {
	t.Track(ctx, userID, EventSubscriptionUpdated, map[string]any{"subscription_id": subscriptionID.String()})
}

func (t *Tracker) SubscriptionCancelled(ctx context.Context, userID, subscriptionID uuid.UUID, serviceName string) {
	t.Track(ctx, userID, EventSubscriptionCancelled, map[string]any{
		"subscription_id": subscriptionID.String(),
		"service_name":    serviceName,
	})
}

func (t *Tracker) SubscriptionDeleted(ctx context.Context, userID, subscriptionID uuid.UUID) {
	t.Track(ctx, userID, EventSubscriptionDeleted, map[string]any{"subscription_id": subscriptionID.String()})
}

func (t *Tracker) DashboardViewed(ctx context.Context, userID uuid.UUID) {
	t.Track(ctx, userID, EventDashboardViewed, nil)
}

// ReminderSent records a reminder notification created for a subscription.
func (t *Tracker) ReminderSent(ctx context.Context, userID, subscriptionID uuid.UUID, kind string) {
	t.Track(ctx, userID, EventReminderSent, map[string]any{
		"subscription_id": subscriptionID.String(),
		"type":            kind,
	})
}
