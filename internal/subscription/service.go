package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// methodManual marks subscriptions entered through the API form.
const methodManual = "manual"

// Service defines the business operations exposed to handlers.
type Service interface {
	Create(context.Context, CreateParams) (Subscription, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (Subscription, error)
	List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Subscription, int, error)
	Upcoming(ctx context.Context, userID uuid.UUID, w RenewalWindow) ([]Renewal, error)
	Update(context.Context, UpdateParams) (Subscription, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Today() time.Time
}

// EventTracker records the subscription lifecycle events.
type EventTracker interface {
	SubscriptionAdded(ctx context.Context, userID uuid.UUID, method, serviceName, cadence string)
	SubscriptionUpdated(ctx context.Context, userID, subscriptionID uuid.UUID)
	SubscriptionCancelled(ctx context.Context, userID, subscriptionID uuid.UUID, serviceName string)
	SubscriptionDeleted(ctx context.Context, userID, subscriptionID uuid.UUID)
}

// CacheInvalidator drops derived per-user data after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Option configures the service.
type Option func(*service)

// WithClock overrides the wall clock used to derive today's date.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithLocation sets the timezone whose calendar date counts as today.
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

type service struct {
	repo    Store
	tracker EventTracker
	cache   CacheInvalidator
	log     *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

// NewService creates a Service backed by the provided repository.
func NewService(repo Store, tracker EventTracker, cache CacheInvalidator, log *slog.Logger, opts ...Option) Service {
	if log == nil {
		log = slog.Default()
	}
	s := &service{
		repo:    repo,
		tracker: tracker,
		cache:   cache,
		log:     log,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Today() time.Time {
	return DateOf(s.now().In(s.loc))
}

func (s *service) Create(ctx context.Context, params CreateParams) (Subscription, error) {
	params.ServiceName = strings.TrimSpace(params.ServiceName)
	if params.ServiceName == "" {
		return Subscription{}, fmt.Errorf("%w: service_name is required", ErrValidation)
	}
	if params.Price.IsNegative() {
		return Subscription{}, ErrNegativePrice
	}
	if !params.Cadence.Valid() {
		return Subscription{}, fmt.Errorf("%w: %q", ErrUnknownCadence, params.Cadence)
	}
	if params.Status == "" {
		params.Status = StatusActive
	}
	if !params.Status.Valid() {
		return Subscription{}, fmt.Errorf("%w: %q", ErrUnknownStatus, params.Status)
	}
	code, err := normalizeCurrency(params.Currency)
	if err != nil {
		return Subscription{}, err
	}
	params.Currency = code
	params.NextBillDate = DateOf(params.NextBillDate)

	sub, err := s.repo.Create(ctx, params)
	if err != nil {
		return Subscription{}, err
	}

	s.afterWrite(ctx, sub.UserID)
	if s.tracker != nil {
		s.tracker.SubscriptionAdded(ctx, sub.UserID, methodManual, sub.ServiceName, string(sub.Cadence))
	}
	return sub, nil
}

func (s *service) GetByID(ctx context.Context, userID, id uuid.UUID) (Subscription, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Subscription, int, error) {
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownStatus, *opts.Status)
	}
	return s.repo.List(ctx, userID, opts)
}

func (s *service) Upcoming(ctx context.Context, userID uuid.UUID, w RenewalWindow) ([]Renewal, error) {
	subs, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return UpcomingRenewals(subs, s.Today(), w), nil
}

func (s *service) Update(ctx context.Context, params UpdateParams) (Subscription, error) {
	if params.ServiceName != nil {
		trimmed := strings.TrimSpace(*params.ServiceName)
		if trimmed == "" {
			return Subscription{}, fmt.Errorf("%w: service_name cannot be empty", ErrValidation)
		}
		params.ServiceName = &trimmed
	}
	if params.Price != nil && params.Price.IsNegative() {
		return Subscription{}, ErrNegativePrice
	}
	if params.Cadence != nil && !params.Cadence.Valid() {
		return Subscription{}, fmt.Errorf("%w: %q", ErrUnknownCadence, *params.Cadence)
	}
	if params.Status != nil && !params.Status.Valid() {
		return Subscription{}, fmt.Errorf("%w: %q", ErrUnknownStatus, *params.Status)
	}
	if params.Currency != nil {
		code, err := normalizeCurrency(*params.Currency)
		if err != nil {
			return Subscription{}, err
		}
		params.Currency = &code
	}
	if params.NextBillDate != nil {
		d := DateOf(*params.NextBillDate)
		params.NextBillDate = &d
	}

	var before Subscription
	if params.Status != nil && *params.Status == StatusCancelled {
		prev, err := s.repo.GetByID(ctx, params.UserID, params.ID)
		if err != nil {
			return Subscription{}, err
		}
		before = prev
	}

	sub, err := s.repo.Update(ctx, params)
	if err != nil {
		return Subscription{}, err
	}

	if params.Empty() {
		return sub, nil
	}

	s.afterWrite(ctx, sub.UserID)
	if s.tracker != nil {
		if before.Status != "" && before.Status != StatusCancelled && sub.Status == StatusCancelled {
			s.tracker.SubscriptionCancelled(ctx, sub.UserID, sub.ID, sub.ServiceName)
		} else {
			s.tracker.SubscriptionUpdated(ctx, sub.UserID, sub.ID)
		}
	}
	return sub, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, userID)
	if s.tracker != nil {
		s.tracker.SubscriptionDeleted(ctx, userID, id)
	}
	return nil
}

func (s *service) afterWrite(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("invalidate dashboard cache", "user_id", userID, "error", err)
	}
}

// normalizeCurrency upper-cases code and checks it against ISO-4217.
// An empty code defaults to USD.
func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "USD", nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return unit.String(), nil
}
