package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a subscription does not exist for the requesting user.
	ErrNotFound = errors.New("subscription not found")
	// ErrUnknownCadence marks a cadence outside the closed set.
	ErrUnknownCadence = errors.New("unknown cadence")
	// ErrUnknownStatus marks a status outside the closed set.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrInvalidDate is returned for bill dates that cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrNegativePrice is returned when a price below zero is submitted.
	ErrNegativePrice = errors.New("price cannot be negative")
	// ErrInvalidCurrency is returned for currency codes that are not ISO-4217.
	ErrInvalidCurrency = errors.New("invalid currency code")
	// ErrValidation covers the remaining malformed inputs.
	ErrValidation = errors.New("validation failed")
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusTrial     Status = "trial"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusTrial:
		return true
	}
	return false
}

// ParseStatus converts raw input into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// Subscription mirrors the database schema for the subscriptions table.
type Subscription struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	ServiceName  string          `json:"service_name"`
	PlanName     *string         `json:"plan_name,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	Cadence      Cadence         `json:"cadence"`
	NextBillDate time.Time       `json:"next_bill_date"`
	Status       Status          `json:"status"`
	Category     *string         `json:"category,omitempty"`
	WebsiteURL   *string         `json:"website_url,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	Verified     bool            `json:"verified"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateParams represents validated data needed to insert a subscription.
type CreateParams struct {
	UserID       uuid.UUID
	ServiceName  string
	PlanName     *string
	Price        decimal.Decimal
	Currency     string
	Cadence      Cadence
	NextBillDate time.Time
	Status       Status
	Category     *string
	WebsiteURL   *string
	Notes        *string
	Verified     bool
}

// UpdateParams carries mutable fields for an existing subscription.
// Nil pointers leave the column untouched.
type UpdateParams struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ServiceName  *string
	PlanName     *string
	Price        *decimal.Decimal
	Currency     *string
	Cadence      *Cadence
	NextBillDate *time.Time
	Status       *Status
	Category     *string
	WebsiteURL   *string
	Notes        *string
}

// Empty reports whether the update changes nothing.
func (p UpdateParams) Empty() bool {
	return p.ServiceName == nil && p.PlanName == nil && p.Price == nil &&
		p.Currency == nil && p.Cadence == nil && p.NextBillDate == nil &&
		p.Status == nil && p.Category == nil && p.WebsiteURL == nil && p.Notes == nil
}

// ListOptions narrows a listing to one status and a name search.
type ListOptions struct {
	Status *Status
	Query  string
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
