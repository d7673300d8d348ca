package handlers

import (
	"context"
	"errors"
	"net/http"

	"pricealert/internal/cache"
	"pricealert/internal/models"
	"pricealert/internal/prices"
	"pricealert/internal/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SnapshotReader returns the last cycle's prices.
type SnapshotReader interface {
	Load(ctx context.Context) (map[string]float64, error)
}

// UserReader resolves the caller's display preferences.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type PriceHandler struct {
	users     UserReader
	snapshots SnapshotReader
	lookup    PriceLookup
	catalog   prices.Catalog
	log       *zap.Logger
}

func NewPriceHandler(users UserReader, snapshots SnapshotReader, lookup PriceLookup, catalog prices.Catalog, log *zap.Logger) *PriceHandler {
	return &PriceHandler{users: users, snapshots: snapshots, lookup: lookup, catalog: catalog, log: log}
}

// Snapshot serves the last published prices, labelled per market. It never calls upstream.
// GET /prices/snapshot?user_id=
func (h *PriceHandler) Snapshot(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "SnapshotHandler")
	defer span.End()
	traceID := span.SpanContext().TraceID().String()

	currency := models.BaseCurrency
	if userID := c.Query("user_id"); userID != "" {
		user, err := h.users.GetUser(ctx, userID)
		if err != nil {
			h.log.Warn("Falling back to base currency",
				zap.String("trace_id", traceID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
		} else {
			currency = models.CurrencyForLanguage(user.Language)
		}
	}

	snapshot, err := h.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrSnapshotNotReady) {
			c.JSON(http.StatusServiceUnavailable, Response{Message: "snapshot not ready"})
			return
		}
		h.log.Error("Failed to load price snapshot", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Message: "Failed to load price snapshot"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Message: "Snapshot retrieved successfully",
		Data:    h.catalog.Partition(snapshot, currency),
	})
}

// Price looks up a single symbol on demand.
// GET /price/:market/:symbol
func (h *PriceHandler) Price(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "PriceHandler")
	defer span.End()

	market, err := models.ParseMarket(c.Param("market"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: err.Error()})
		return
	}
	symbol := models.NormalizeSymbol(c.Param("symbol"))

	price, err := h.lookup.Price(ctx, market, symbol)
	if err != nil {
		if errors.Is(err, prices.ErrUnavailable) {
			c.JSON(http.StatusNotFound, Response{Message: "Price not found for " + symbol})
			return
		}
		h.log.Error("Price lookup failed",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, Response{Message: "Price lookup failed"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Message: "Price retrieved successfully",
		Data:    prices.Quote{Symbol: symbol, Price: price},
	})
}
