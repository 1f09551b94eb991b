package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/esumbrandon/Schnei/internal/middleware"
)

// StatsProvider is implemented by Service.
type StatsProvider interface {
	Stats(ctx context.Context, userID uuid.UUID) (Stats, error)
}

// EventTracker is the slice of analytics.Tracker the dashboard reports to.
type EventTracker interface {
	DashboardViewed(ctx context.Context, userID uuid.UUID)
	Identify(ctx context.Context, userID uuid.UUID, traits map[string]any)
}

type Handler struct {
	stats   StatsProvider
	tracker EventTracker
	log     *slog.Logger

	// identified holds users already identified by this process.
	identified sync.Map
}

func NewHandler(stats StatsProvider, tracker EventTracker, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{stats: stats, tracker: tracker, log: log}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/dashboard", h.get)
}

// get godoc
// @Summary      Dashboard summary
// @Description  Spend totals, upcoming renewals and insights for the caller's active subscriptions.
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboard.Stats
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/dashboard [get]
func (h *Handler) get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.stats.Stats(c.Request.Context(), userID)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "dashboard stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if h.tracker != nil {
		h.identify(c.Request.Context(), userID, stats)
		h.tracker.DashboardViewed(c.Request.Context(), userID)
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) identify(ctx context.Context, userID uuid.UUID, stats Stats) {
	if _, seen := h.identified.LoadOrStore(userID, struct{}{}); seen {
		return
	}
	h.tracker.Identify(ctx, userID, map[string]any{
		"active_subscriptions": stats.ActiveSubscriptions,
		"total_subscriptions":  stats.TotalSubscriptions,
		"monthly_spend":        stats.MonthlySpend.StringFixed(2),
		"currency":             stats.Currency,
	})
}
