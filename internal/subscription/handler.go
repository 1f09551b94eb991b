package subscription

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esumbrandon/Schnei/internal/format"
	"github.com/esumbrandon/Schnei/internal/middleware"
)

const maxRenewalWindow = 365

var registerOnce sync.Once

// RegisterValidators adds the cadence and status tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("cadence", func(fl validator.FieldLevel) bool {
			return Cadence(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			return Status(fl.Field().String()).Valid()
		})
	})
}

// Handler exposes HTTP handlers for subscription resources.
type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	RegisterValidators()
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/subscriptions")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/upcoming", h.upcoming)
	group.GET("/:id", h.getByID)
	group.PATCH("/:id", h.update)
	group.DELETE("/:id", h.delete)
}

// View is the API representation of a subscription with derived figures.
type View struct {
	Subscription
	NextBillDate   string          `json:"next_bill_date"`
	FormattedPrice string          `json:"formatted_price"`
	MonthlyCost    decimal.Decimal `json:"monthly_cost"`
	DaysUntil      int             `json:"days_until"`
	RenewalLabel   string          `json:"renewal_label"`
	IsUpcoming     bool            `json:"is_upcoming"`
}

// NewView derives the display fields of sub relative to today.
func NewView(sub Subscription, today time.Time) View {
	days := DaysUntil(sub.NextBillDate, today)
	return View{
		Subscription:   sub,
		NextBillDate:   sub.NextBillDate.Format(layoutDate),
		FormattedPrice: format.Currency(sub.Price, sub.Currency),
		MonthlyCost:    NormalizeToMonthly(sub.Price, sub.Cadence).Round(2),
		DaysUntil:      days,
		RenewalLabel:   format.RenewalLabel(days),
		IsUpcoming:     IsUpcoming(days),
	}
}

type createSubscriptionRequest struct {
	ServiceName  string           `json:"service_name" binding:"required,max=200"`
	PlanName     *string          `json:"plan_name" binding:"omitempty,max=200"`
	Price        *decimal.Decimal `json:"price" binding:"required"`
	Currency     string           `json:"currency" binding:"omitempty,iso4217"`
	Cadence      string           `json:"cadence" binding:"required,cadence"`
	NextBillDate string           `json:"next_bill_date" binding:"required"`
	Status       string           `json:"status" binding:"omitempty,status"`
	Category     *string          `json:"category" binding:"omitempty,max=100"`
	WebsiteURL   *string          `json:"website_url" binding:"omitempty,url"`
	Notes        *string          `json:"notes" binding:"omitempty,max=2000"`
}

// create godoc
// @Summary      Create a subscription
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      subscription.createSubscriptionRequest  true  "Subscription"
// @Success      201   {object}  subscription.View
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/subscriptions [post]
func (h *Handler) create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNegativePrice.Error()})
		return
	}

	billDate, err := ParseDate(req.NextBillDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.svc.Create(c.Request.Context(), CreateParams{
		UserID:       userID,
		ServiceName:  strings.TrimSpace(req.ServiceName),
		PlanName:     trimmedOrNil(req.PlanName),
		Price:        *req.Price,
		Currency:     req.Currency,
		Cadence:      Cadence(req.Cadence),
		NextBillDate: billDate,
		Status:       Status(req.Status),
		Category:     trimmedOrNil(req.Category),
		WebsiteURL:   trimmedOrNil(req.WebsiteURL),
		Notes:        trimmedOrNil(req.Notes),
	})
	if err != nil {
		h.writeError(c, "create subscription", err)
		return
	}

	c.JSON(http.StatusCreated, NewView(sub, h.svc.Today()))
}

type listResponse struct {
	Items  []View `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// list godoc
// @Summary      List subscriptions
// @Description  Ordered by next bill date. Status "all" or empty disables the status filter.
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "active, paused, cancelled, trial or all"
// @Param        q       query     string  false  "Search in service and plan name"
// @Param        limit   query     int     false  "Page size"  default(50)
// @Param        offset  query     int     false  "Page offset"
// @Success      200     {object}  subscription.listResponse
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      500     {object}  map[string]string
// @Router       /api/v1/subscriptions [get]
func (h *Handler) list(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	opts := ListOptions{Query: strings.TrimSpace(c.Query("q"))}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		status, err := ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opts.Status = &status
	}

	var err error
	if opts.Limit, err = intQuery(c, "limit", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if opts.Offset, err = intQuery(c, "offset", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	opts = opts.normalized()

	subs, total, err := h.svc.List(c.Request.Context(), userID, opts)
	if err != nil {
		h.writeError(c, "list subscriptions", err)
		return
	}

	today := h.svc.Today()
	items := make([]View, 0, len(subs))
	for _, sub := range subs {
		items = append(items, NewView(sub, today))
	}

	c.JSON(http.StatusOK, listResponse{
		Items:  items,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

type upcomingResponse struct {
	Items  []View `json:"items"`
	Window int    `json:"window"`
}

// upcoming godoc
// @Summary      Renewals inside a window
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        window           query     int   false  "Days ahead, 0 to 365"  default(7)
// @Param        include_overdue  query     bool  false  "Include past due renewals"
// @Success      200              {object}  subscription.upcomingResponse
// @Failure      400              {object}  map[string]string
// @Failure      401              {object}  map[string]string
// @Failure      500              {object}  map[string]string
// @Router       /api/v1/subscriptions/upcoming [get]
func (h *Handler) upcoming(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	window, err := intQuery(c, "window", DefaultRenewalWindow)
	if err != nil || window < 0 || window > maxRenewalWindow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be between 0 and 365"})
		return
	}

	includeOverdue := false
	if raw := c.Query("include_overdue"); raw != "" {
		if includeOverdue, err = strconv.ParseBool(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid include_overdue"})
			return
		}
	}

	renewals, err := h.svc.Upcoming(c.Request.Context(), userID, RenewalWindow{
		Days:           window,
		IncludeOverdue: includeOverdue,
	})
	if err != nil {
		h.writeError(c, "list upcoming renewals", err)
		return
	}

	today := h.svc.Today()
	items := make([]View, 0, len(renewals))
	for _, r := range renewals {
		items = append(items, NewView(r.Subscription, today))
	}

	c.JSON(http.StatusOK, upcomingResponse{Items: items, Window: window})
}

// getByID godoc
// @Summary      Get a subscription
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Subscription ID"
// @Success      200  {object}  subscription.View
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/subscriptions/{id} [get]
func (h *Handler) getByID(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	sub, err := h.svc.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, "get subscription", err)
		return
	}

	c.JSON(http.StatusOK, NewView(sub, h.svc.Today()))
}

type updateSubscriptionRequest struct {
	ServiceName  *string          `json:"service_name" binding:"omitempty,max=200"`
	PlanName     *string          `json:"plan_name" binding:"omitempty,max=200"`
	Price        *decimal.Decimal `json:"price"`
	Currency     *string          `json:"currency" binding:"omitempty,iso4217"`
	Cadence      *string          `json:"cadence" binding:"omitempty,cadence"`
	NextBillDate *string          `json:"next_bill_date"`
	Status       *string          `json:"status" binding:"omitempty,status"`
	Category     *string          `json:"category" binding:"omitempty,max=100"`
	WebsiteURL   *string          `json:"website_url" binding:"omitempty,url"`
	Notes        *string          `json:"notes" binding:"omitempty,max=2000"`
}

// update godoc
// @Summary      Update a subscription
// @Description  Only the fields present in the body change.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                                  true  "Subscription ID"
// @Param        body  body      subscription.updateSubscriptionRequest  true  "Fields to change"
// @Success      200   {object}  subscription.View
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/subscriptions/{id} [patch]
func (h *Handler) update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := UpdateParams{
		ID:          subID,
		UserID:      userID,
		ServiceName: req.ServiceName,
		PlanName:    req.PlanName,
		Price:       req.Price,
		Currency:    req.Currency,
		Category:    req.Category,
		WebsiteURL:  req.WebsiteURL,
		Notes:       req.Notes,
	}

	if req.Price != nil && req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrNegativePrice.Error()})
		return
	}

	if req.Cadence != nil {
		cadence := Cadence(*req.Cadence)
		params.Cadence = &cadence
	}

	if req.Status != nil {
		status := Status(*req.Status)
		params.Status = &status
	}

	if req.NextBillDate != nil {
		billDate, err := ParseDate(*req.NextBillDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		params.NextBillDate = &billDate
	}

	sub, err := h.svc.Update(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, "update subscription", err)
		return
	}

	c.JSON(http.StatusOK, NewView(sub, h.svc.Today()))
}

// delete godoc
// @Summary      Delete a subscription
// @Tags         subscriptions
// @Security     BearerAuth
// @Param        id  path  string  true  "Subscription ID"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/subscriptions/{id} [delete]
func (h *Handler) delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, "delete subscription", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	case errors.Is(err, ErrUnknownCadence),
		errors.Is(err, ErrUnknownStatus),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrNegativePrice),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
