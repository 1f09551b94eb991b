package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esumbrandon/Schnei/internal/middleware"
	"github.com/esumbrandon/Schnei/internal/subscription"
)

type recordingTracker struct {
	views      []uuid.UUID
	identified []map[string]any
}

func (r *recordingTracker) DashboardViewed(_ context.Context, userID uuid.UUID) {
	r.views = append(r.views, userID)
}

func (r *recordingTracker) Identify(_ context.Context, _ uuid.UUID, traits map[string]any) {
	r.identified = append(r.identified, traits)
}

func newDashboardRouter(h *Handler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if userID != uuid.Nil {
		router.Use(func(c *gin.Context) { middleware.SetUserID(c, userID) })
	}
	h.RegisterRoutes(router)
	return router
}

func getDashboard(router *gin.Engine) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	return rec
}

func TestHandler_Get(t *testing.T) {
	store := &fakeStore{active: []subscription.Subscription{sub("A", "3", subscription.CadenceQuarterly, 2)}, total: 1}
	tracker := &recordingTracker{}
	h := NewHandler(NewService(store, nil, fixedClock{today}, quiet()), tracker, quiet())
	userID := uuid.New()
	router := newDashboardRouter(h, userID)

	rec := getDashboard(router)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1", body["monthly_spend"])
	assert.Equal(t, "12", body["annual_spend"])
	assert.EqualValues(t, 1, body["upcoming_count"])
	assert.Equal(t, []uuid.UUID{userID}, tracker.views)
}

func TestHandler_GetIdentifiesUserOnce(t *testing.T) {
	store := &fakeStore{active: []subscription.Subscription{sub("A", "3", subscription.CadenceMonthly, 2)}, total: 2}
	tracker := &recordingTracker{}
	h := NewHandler(NewService(store, nil, fixedClock{today}, quiet()), tracker, quiet())
	router := newDashboardRouter(h, uuid.New())

	require.Equal(t, http.StatusOK, getDashboard(router).Code)
	require.Equal(t, http.StatusOK, getDashboard(router).Code)

	assert.Len(t, tracker.views, 2)
	require.Len(t, tracker.identified, 1)
	assert.Equal(t, map[string]any{
		"active_subscriptions": 1,
		"total_subscriptions":  2,
		"monthly_spend":        "3.00",
		"currency":             "USD",
	}, tracker.identified[0])
}

func TestHandler_GetStoreError(t *testing.T) {
	tracker := &recordingTracker{}
	h := NewHandler(NewService(&fakeStore{err: errors.New("db down")}, nil, fixedClock{today}, quiet()), tracker, quiet())
	router := newDashboardRouter(h, uuid.New())

	rec := getDashboard(router)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, tracker.views)
	assert.Empty(t, tracker.identified)
}

func TestHandler_Unauthorized(t *testing.T) {
	h := NewHandler(NewService(&fakeStore{}, nil, fixedClock{today}, quiet()), nil, quiet())
	router := newDashboardRouter(h, uuid.Nil)

	assert.Equal(t, http.StatusUnauthorized, getDashboard(router).Code)
}
