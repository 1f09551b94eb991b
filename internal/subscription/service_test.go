package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esumbrandon/Schnei/internal/analytics"
)

type fakeStore struct {
	subs    map[uuid.UUID]Subscription
	created []CreateParams
	updated []UpdateParams
	err     error
}

func newFakeStore(subs ...Subscription) *fakeStore {
	s := &fakeStore{subs: map[uuid.UUID]Subscription{}}
	for _, sub := range subs {
		s.subs[sub.ID] = sub
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, p CreateParams) (Subscription, error) {
	if s.err != nil {
		return Subscription{}, s.err
	}
	s.created = append(s.created, p)
	sub := Subscription{
		ID:           uuid.New(),
		UserID:       p.UserID,
		ServiceName:  p.ServiceName,
		Price:        p.Price,
		Currency:     p.Currency,
		Cadence:      p.Cadence,
		NextBillDate: p.NextBillDate,
		Status:       p.Status,
	}
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *fakeStore) GetByID(_ context.Context, userID, id uuid.UUID) (Subscription, error) {
	sub, ok := s.subs[id]
	if !ok || sub.UserID != userID {
		return Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (s *fakeStore) List(_ context.Context, userID uuid.UUID, _ ListOptions) ([]Subscription, int, error) {
	var out []Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, len(out), s.err
}

func (s *fakeStore) ListActive(_ context.Context, userID uuid.UUID) ([]Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.Status == StatusActive {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeStore) ListRenewingBetween(context.Context, time.Time, time.Time, []Status) ([]Subscription, error) {
	return nil, nil
}

func (s *fakeStore) Update(_ context.Context, p UpdateParams) (Subscription, error) {
	s.updated = append(s.updated, p)
	sub, ok := s.subs[p.ID]
	if !ok || sub.UserID != p.UserID {
		return Subscription{}, ErrNotFound
	}
	if p.ServiceName != nil {
		sub.ServiceName = *p.ServiceName
	}
	if p.Price != nil {
		sub.Price = *p.Price
	}
	if p.Status != nil {
		sub.Status = *p.Status
	}
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *fakeStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	sub, ok := s.subs[id]
	if !ok || sub.UserID != userID {
		return ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

type trackedEvent struct {
	userID uuid.UUID
	name   string
	props  map[string]any
}

type recordingTracker struct {
	events []trackedEvent
}

func (r *recordingTracker) record(userID uuid.UUID, name string, props map[string]any) {
	r.events = append(r.events, trackedEvent{userID: userID, name: name, props: props})
}

func (r *recordingTracker) SubscriptionAdded(_ context.Context, userID uuid.UUID, method, serviceName, cadence string) {
	r.record(userID, analytics.EventSubscriptionAdded, map[string]any{
		"method": method, "service_name": serviceName, "cadence": cadence,
	})
}

func (r *recordingTracker) SubscriptionUpdated(_ context.Context, userID, subscriptionID uuid.UUID) {
	r.record(userID, analytics.EventSubscriptionUpdated, map[string]any{"subscription_id": subscriptionID})
}

func (r *recordingTracker) SubscriptionCancelled(_ context.Context, userID, subscriptionID uuid.UUID, serviceName string) {
	r.record(userID, analytics.EventSubscriptionCancelled, map[string]any{
		"subscription_id": subscriptionID, "service_name": serviceName,
	})
}

func (r *recordingTracker) SubscriptionDeleted(_ context.Context, userID, subscriptionID uuid.UUID) {
	r.record(userID, analytics.EventSubscriptionDeleted, map[string]any{"subscription_id": subscriptionID})
}

type recordingCache struct {
	invalidated []uuid.UUID
	err         error
}

func (c *recordingCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.invalidated = append(c.invalidated, userID)
	return c.err
}

func newTestService(store Store, opts ...Option) (Service, *recordingTracker, *recordingCache) {
	tracker := &recordingTracker{}
	cache := &recordingCache{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, tracker, cache, log, opts...), tracker, cache
}

func validCreate(userID uuid.UUID) CreateParams {
	return CreateParams{
		UserID:       userID,
		ServiceName:  "  Netflix ",
		Price:        d("15.99"),
		Cadence:      CadenceMonthly,
		NextBillDate: time.Date(2025, time.March, 11, 15, 30, 0, 0, time.UTC),
	}
}

func TestService_CreateAppliesDefaults(t *testing.T) {
	store := newFakeStore()
	svc, tracker, cache := newTestService(store)
	userID := uuid.New()

	sub, err := svc.Create(context.Background(), validCreate(userID))
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	got := store.created[0]
	assert.Equal(t, "Netflix", got.ServiceName)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), got.NextBillDate)
	assert.Equal(t, userID, sub.UserID)

	assert.Equal(t, []uuid.UUID{userID}, cache.invalidated)
	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventSubscriptionAdded, tracker.events[0].name)
	assert.Equal(t, "manual", tracker.events[0].props["method"])
	assert.Equal(t, "Netflix", tracker.events[0].props["service_name"])
	assert.Equal(t, "monthly", tracker.events[0].props["cadence"])
}

func TestService_CreateValidation(t *testing.T) {
	userID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*CreateParams)
		want   error
	}{
		{"blank name", func(p *CreateParams) { p.ServiceName = "   " }, ErrValidation},
		{"negative price", func(p *CreateParams) { p.Price = d("-1") }, ErrNegativePrice},
		{"unknown cadence", func(p *CreateParams) { p.Cadence = "fortnightly" }, ErrUnknownCadence},
		{"unknown status", func(p *CreateParams) { p.Status = "expired" }, ErrUnknownStatus},
		{"bad currency", func(p *CreateParams) { p.Currency = "XXXX" }, ErrInvalidCurrency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc, tracker, _ := newTestService(store)

			params := validCreate(userID)
			tc.mutate(&params)

			_, err := svc.Create(context.Background(), params)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, store.created)
			assert.Empty(t, tracker.events)
		})
	}
}

func TestService_CreateNormalizesCurrency(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)

	params := validCreate(uuid.New())
	params.Currency = " eur"
	_, err := svc.Create(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "EUR", store.created[0].Currency)
}

func TestService_CreateAllowsZeroPrice(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)

	params := validCreate(uuid.New())
	params.Price = decimal.Zero
	_, err := svc.Create(context.Background(), params)
	assert.NoError(t, err)
}

func TestService_CreateStoreErrorSkipsSideEffects(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	svc, tracker, cache := newTestService(store)

	_, err := svc.Create(context.Background(), validCreate(uuid.New()))
	assert.Error(t, err)
	assert.Empty(t, tracker.events)
	assert.Empty(t, cache.invalidated)
}

func TestService_UpdateTracksCancellation(t *testing.T) {
	userID := uuid.New()
	existing := Subscription{ID: uuid.New(), UserID: userID, ServiceName: "Spotify", Status: StatusActive}
	store := newFakeStore(existing)
	svc, tracker, cache := newTestService(store)

	cancelled := StatusCancelled
	sub, err := svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: userID, Status: &cancelled})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, sub.Status)
	assert.Equal(t, []uuid.UUID{userID}, cache.invalidated)
	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventSubscriptionCancelled, tracker.events[0].name)
	assert.Equal(t, "Spotify", tracker.events[0].props["service_name"])
	assert.Equal(t, existing.ID, tracker.events[0].props["subscription_id"])
}

func TestService_UpdateAlreadyCancelledIsPlainUpdate(t *testing.T) {
	userID := uuid.New()
	existing := Subscription{ID: uuid.New(), UserID: userID, ServiceName: "Spotify", Status: StatusCancelled}
	svc, tracker, _ := newTestService(newFakeStore(existing))

	cancelled := StatusCancelled
	_, err := svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: userID, Status: &cancelled})
	require.NoError(t, err)

	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventSubscriptionUpdated, tracker.events[0].name)
}

func TestService_UpdateValidation(t *testing.T) {
	userID := uuid.New()
	existing := Subscription{ID: uuid.New(), UserID: userID, ServiceName: "Spotify", Status: StatusActive}
	store := newFakeStore(existing)
	svc, _, _ := newTestService(store)

	blank := " "
	_, err := svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: userID, ServiceName: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	negative := d("-0.01")
	_, err = svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: userID, Price: &negative})
	assert.ErrorIs(t, err, ErrNegativePrice)

	cadence := Cadence("hourly")
	_, err = svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: userID, Cadence: &cadence})
	assert.ErrorIs(t, err, ErrUnknownCadence)

	assert.Empty(t, store.updated)
}

func TestService_UpdateOtherUsersRecord(t *testing.T) {
	existing := Subscription{ID: uuid.New(), UserID: uuid.New(), Status: StatusActive}
	svc, tracker, _ := newTestService(newFakeStore(existing))

	cancelled := StatusCancelled
	_, err := svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: uuid.New(), Status: &cancelled})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, tracker.events)
}

func TestService_EmptyUpdateHasNoSideEffects(t *testing.T) {
	userID := uuid.New()
	existing := Subscription{ID: uuid.New(), UserID: userID, Status: StatusActive}
	svc, tracker, cache := newTestService(newFakeStore(existing))

	_, err := svc.Update(context.Background(), UpdateParams{ID: existing.ID, UserID: userID})
	require.NoError(t, err)
	assert.Empty(t, tracker.events)
	assert.Empty(t, cache.invalidated)
}

func TestService_Delete(t *testing.T) {
	userID := uuid.New()
	existing := Subscription{ID: uuid.New(), UserID: userID, Status: StatusActive}
	store := newFakeStore(existing)
	svc, tracker, cache := newTestService(store)

	require.NoError(t, svc.Delete(context.Background(), userID, existing.ID))
	assert.Empty(t, store.subs)
	assert.Equal(t, []uuid.UUID{userID}, cache.invalidated)
	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventSubscriptionDeleted, tracker.events[0].name)
	assert.Equal(t, existing.ID, tracker.events[0].props["subscription_id"])

	assert.ErrorIs(t, svc.Delete(context.Background(), userID, existing.ID), ErrNotFound)
}

func TestService_CacheFailureDoesNotFailWrite(t *testing.T) {
	store := newFakeStore()
	tracker := &recordingTracker{}
	cache := &recordingCache{err: errors.New("redis down")}
	svc := NewService(store, tracker, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Create(context.Background(), validCreate(uuid.New()))
	assert.NoError(t, err)
	assert.Len(t, tracker.events, 1)
}

func TestService_NilCollaborators(t *testing.T) {
	svc := NewService(newFakeStore(), nil, nil, nil)

	_, err := svc.Create(context.Background(), validCreate(uuid.New()))
	assert.NoError(t, err)
}

func TestService_TodayUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	now := func() time.Time { return time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC) }

	utc := NewService(newFakeStore(), nil, nil, nil, WithClock(now))
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), utc.Today())

	local := NewService(newFakeStore(), nil, nil, nil, WithClock(now), WithLocation(tokyo))
	assert.Equal(t, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), local.Today())
}

func TestService_UpcomingUsesActiveRecords(t *testing.T) {
	userID := uuid.New()
	today := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	soon := Subscription{ID: uuid.New(), UserID: userID, Status: StatusActive, NextBillDate: today.AddDate(0, 0, 2)}
	paused := Subscription{ID: uuid.New(), UserID: userID, Status: StatusPaused, NextBillDate: today.AddDate(0, 0, 1)}
	later := Subscription{ID: uuid.New(), UserID: userID, Status: StatusActive, NextBillDate: today.AddDate(0, 0, 30)}

	svc, _, _ := newTestService(newFakeStore(soon, paused, later), WithClock(func() time.Time { return today.Add(9 * time.Hour) }))

	got, err := svc.Upcoming(context.Background(), userID, RenewalWindow{Days: 7})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, soon.ID, got[0].ID)
	assert.Equal(t, 2, got[0].DaysUntil)
}

func TestService_ListRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(newFakeStore())

	bad := Status("expired")
	_, _, err := svc.List(context.Background(), uuid.New(), ListOptions{Status: &bad})
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
