package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pricealert/internal/database"
	"pricealert/internal/models"
	"pricealert/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AlertStore is the persistence the alert endpoints need.
type AlertStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	CountAlerts(ctx context.Context, userID string) (int, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlertByID(ctx context.Context, id string) (*models.Alert, error)
	UpdateAlert(ctx context.Context, alert *models.Alert) error
	ListAlertsByUser(ctx context.Context, userID string) ([]*models.Alert, error)
	DeleteAlert(ctx context.Context, id string) (string, error)
}

// AlertListCache holds rendered per-user alert lists.
type AlertListCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const alertListTTL = 30 * time.Second

func userAlertsKey(userID string) string {
	return "user_alerts:" + userID
}

// PriceLookup resolves a single current price.
type PriceLookup interface {
	Price(ctx context.Context, market models.Market, symbol string) (float64, error)
}

type CreateAlertRequest struct {
	UserID     string  `json:"user_id" binding:"required"`
	Market     string  `json:"market" binding:"required"`
	Symbol     string  `json:"symbol" binding:"required"`
	Percentage float64 `json:"percentage" binding:"required"`
}

type UpdateAlertRequest struct {
	Percentage float64 `json:"percentage,omitempty"`
}

type AlertHandler struct {
	store    AlertStore
	lookup   PriceLookup
	lists    AlertListCache
	policies models.TierPolicies
	now      func() time.Time
	log      *zap.Logger
}

// NewAlertHandler wires the alert endpoints. lists may be nil, which disables list caching.
func NewAlertHandler(store AlertStore, lookup PriceLookup, lists AlertListCache, policies models.TierPolicies, log *zap.Logger) *AlertHandler {
	return &AlertHandler{store: store, lookup: lookup, lists: lists, policies: policies, now: time.Now, log: log}
}

func validPercentage(pct float64) bool {
	return pct > 0 && pct < 100
}

// CreateAlert registers a band around the current price.
// POST /alerts
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "CreateAlertHandler")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: "Invalid request body"})
		return
	}
	market, err := models.ParseMarket(req.Market)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}
	if !validPercentage(req.Percentage) {
		c.JSON(http.StatusBadRequest, Response{Message: "percentage must be between 0 and 100"})
		return
	}

	user, err := h.store.GetUser(ctx, req.UserID)
	if err != nil {
		h.storeError(c, traceID, "Failed to fetch user", err)
		return
	}

	// Quota is settled before any upstream call.
	count, err := h.store.CountAlerts(ctx, user.ID)
	if err != nil {
		h.storeError(c, traceID, "Failed to count alerts", err)
		return
	}
	if h.policies.QuotaExceeded(user.Tier, count) {
		h.log.Info("Alert quota exceeded",
			zap.String("trace_id", traceID),
			zap.String("user_id", user.ID),
			zap.String("tier", string(user.Tier)),
			zap.Int("count", count),
		)
		c.JSON(http.StatusConflict, Response{Message: models.ErrQuotaExceeded.Error()})
		return
	}

	symbol := models.NormalizeSymbol(req.Symbol)
	if market == models.MarketMetal && !strings.Contains(symbol, "-") {
		symbol = models.MetalSymbol(symbol, models.CurrencyForLanguage(user.Language))
	}

	price, err := h.lookup.Price(ctx, market, symbol)
	if err != nil {
		h.log.Warn("Price lookup failed",
			zap.String("trace_id", traceID),
			zap.String("market", string(market)),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		c.JSON(http.StatusUnprocessableEntity, Response{Message: "Price unavailable for " + symbol})
		return
	}

	alert, err := models.NewAlert(uuid.New().String(), user.ID, market, symbol, req.Percentage, price, h.now())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, Response{Message: err.Error()})
		return
	}
	if err := h.store.CreateAlert(ctx, alert); err != nil {
		h.storeError(c, traceID, "Failed to create alert", err)
		return
	}
	h.invalidate(ctx, traceID, alert.UserID)

	c.JSON(http.StatusCreated, Response{Message: "Alert created successfully", Data: alert})
}

// GetAlert returns one alert.
// GET /alerts/:id
func (h *AlertHandler) GetAlert(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "GetAlertHandler")
	defer span.End()

	alert, err := h.store.GetAlertByID(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, span.SpanContext().TraceID().String(), "Failed to fetch alert", err)
		return
	}
	c.JSON(http.StatusOK, Response{Message: "Alert retrieved successfully", Data: alert})
}

// UpdateAlert re-centres the band on a fresh price, optionally with a new percentage.
// PUT /alerts/:id
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "UpdateAlertHandler")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	var req UpdateAlertRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Message: "Invalid request body"})
			return
		}
	}
	if req.Percentage != 0 && !validPercentage(req.Percentage) {
		c.JSON(http.StatusBadRequest, Response{Message: "percentage must be between 0 and 100"})
		return
	}

	alert, err := h.store.GetAlertByID(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, traceID, "Failed to fetch alert for update", err)
		return
	}

	price, err := h.lookup.Price(ctx, alert.Market, alert.Symbol)
	if err != nil {
		h.log.Warn("Price lookup failed",
			zap.String("trace_id", traceID),
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusUnprocessableEntity, Response{Message: "Price unavailable for " + alert.Symbol})
		return
	}
	if err := alert.Rearm(price, req.Percentage, h.now()); err != nil {
		c.JSON(http.StatusUnprocessableEntity, Response{Message: err.Error()})
		return
	}
	if err := h.store.UpdateAlert(ctx, alert); err != nil {
		h.storeError(c, traceID, "Failed to update alert", err)
		return
	}
	h.invalidate(ctx, traceID, alert.UserID)

	c.JSON(http.StatusOK, Response{Message: "Alert updated successfully", Data: alert})
}

// ListAlerts returns a user's alerts, served from the cache when possible.
// GET /users/:id/alerts
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "ListAlertsHandler")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	userID := c.Param("id")
	key := userAlertsKey(userID)

	if h.lists != nil {
		cached, ok, err := h.lists.Get(ctx, key)
		if err != nil {
			h.log.Warn("Failed to read alert list cache", zap.String("trace_id", traceID), zap.Error(err))
		} else if ok {
			h.log.Debug("Cache hit for alert list",
				zap.String("trace_id", traceID),
				zap.String("cache_key", key),
			)
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			return
		}
	}

	alerts, err := h.store.ListAlertsByUser(ctx, userID)
	if err != nil {
		h.storeError(c, traceID, "Failed to fetch alerts", err)
		return
	}

	body, err := json.Marshal(Response{Message: "Alerts retrieved successfully", Data: alerts})
	if err != nil {
		h.log.Error("Failed to encode JSON response", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Message: "Failed to encode JSON response"})
		return
	}
	if h.lists != nil {
		if err := h.lists.Set(ctx, key, string(body), alertListTTL); err != nil {
			h.log.Warn("Failed to store alert list in cache",
				zap.String("trace_id", traceID),
				zap.String("cache_key", key),
				zap.Error(err),
			)
		}
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// DeleteAlert cancels a watch and frees its quota slot.
// DELETE /alerts/:id
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "DeleteAlertHandler")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	userID, err := h.store.DeleteAlert(ctx, c.Param("id"))
	if err != nil {
		h.storeError(c, traceID, "Failed to delete alert", err)
		return
	}
	h.invalidate(ctx, traceID, userID)

	c.JSON(http.StatusOK, Response{Message: "Alert deleted successfully"})
}

func (h *AlertHandler) invalidate(ctx context.Context, traceID, userID string) {
	if h.lists == nil {
		return
	}
	if err := h.lists.Delete(ctx, userAlertsKey(userID)); err != nil {
		h.log.Warn("Failed to invalidate alert list cache",
			zap.String("trace_id", traceID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (h *AlertHandler) storeError(c *gin.Context, traceID, msg string, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		c.JSON(http.StatusNotFound, Response{Message: "User not found"})
	case errors.Is(err, database.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, Response{Message: "Alert not found"})
	default:
		h.log.Error(msg, zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Message: msg})
	}
}
