// Package notification stores in-app notices such as renewal reminders.
package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypeRenewalReminder Type = "renewal_reminder"
	TypeTrialEnding     Type = "trial_ending"
	TypePriceIncrease   Type = "price_increase"
	TypeDuplicateFound  Type = "duplicate_found"
	TypeSyncError       Type = "sync_error"
)

type Notification struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Type           Type       `json:"type"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	Read           bool       `json:"read"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CreateParams describes a notification to insert.
type CreateParams struct {
	UserID         uuid.UUID
	Type           Type
	Title          string
	Message        string
	SubscriptionID *uuid.UUID
	ScheduledFor   *time.Time
}
