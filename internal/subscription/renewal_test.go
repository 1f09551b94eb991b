package subscription

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refToday = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func billingIn(days int) Subscription {
	return Subscription{ID: uuid.New(), NextBillDate: refToday.AddDate(0, 0, days), Status: StatusActive}
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(refToday, refToday))
	assert.Equal(t, 1, DaysUntil(refToday.AddDate(0, 0, 1), refToday))
	assert.Equal(t, -1, DaysUntil(refToday.AddDate(0, 0, -1), refToday))
	assert.Equal(t, 365, DaysUntil(refToday.AddDate(1, 0, 0), refToday))
}

func TestDaysUntil_IgnoresTimeOfDay(t *testing.T) {
	lateToday := time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC)
	earlyTomorrow := time.Date(2025, time.March, 11, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysUntil(earlyTomorrow, lateToday))
	assert.Equal(t, 0, DaysUntil(lateToday, refToday))
}

func TestDaysUntil_UsesCalendarDateOfEachLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2025-03-11 08:00 in Tokyo is still 2025-03-10 in UTC.
	todayInTokyo := time.Date(2025, time.March, 11, 8, 0, 0, 0, tokyo)

	assert.Equal(t, 0, DaysUntil(time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), todayInTokyo))
}

func TestDaysUntil_AcrossDST(t *testing.T) {
	ny := time.FixedZone("EST", -5*60*60)
	before := time.Date(2025, time.March, 8, 12, 0, 0, 0, ny)
	after := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.FixedZone("EDT", -4*60*60))

	assert.Equal(t, 2, DaysUntil(after, before))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-03-15 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("15/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("2025-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestUpcomingRenewals_DashboardExample(t *testing.T) {
	plus3, plus10, minus2 := billingIn(3), billingIn(10), billingIn(-2)
	subs := []Subscription{plus3, plus10, minus2}

	got := UpcomingRenewals(subs, refToday, RenewalWindow{Days: 7})
	require.Len(t, got, 1)
	assert.Equal(t, plus3.ID, got[0].ID)
	assert.Equal(t, 3, got[0].DaysUntil)

	raw := UpcomingRenewals(subs, refToday, RenewalWindow{Days: 7, IncludeOverdue: true})
	require.Len(t, raw, 2)
	assert.Equal(t, minus2.ID, raw[0].ID)
	assert.Equal(t, plus3.ID, raw[1].ID)
}

func TestUpcomingRenewals_SortedAndStable(t *testing.T) {
	a, b, c, e := billingIn(5), billingIn(1), billingIn(5), billingIn(0)

	got := UpcomingRenewals([]Subscription{a, b, c, e}, refToday, RenewalWindow{Days: 7})

	require.Len(t, got, 4)
	ids := []uuid.UUID{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	assert.Equal(t, []uuid.UUID{e.ID, b.ID, a.ID, c.ID}, ids)
}

func TestUpcomingRenewals_WindowBoundaryInclusive(t *testing.T) {
	got := UpcomingRenewals([]Subscription{billingIn(7), billingIn(8)}, refToday, RenewalWindow{Days: 7})
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].DaysUntil)
}

func TestUpcomingRenewals_Empty(t *testing.T) {
	assert.Empty(t, UpcomingRenewals(nil, refToday, RenewalWindow{Days: 7}))
}

func TestIsUpcoming(t *testing.T) {
	assert.True(t, IsUpcoming(0))
	assert.True(t, IsUpcoming(7))
	assert.False(t, IsUpcoming(8))
	assert.False(t, IsUpcoming(-1))
}
