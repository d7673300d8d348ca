package handlers

import (
	"context"
	"net/http"

	"pricealert/internal/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TokenStore interface {
	UpsertUserToken(ctx context.Context, userID, token, language string) error
}

type RegisterTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Language string `json:"language"`
}

type UserHandler struct {
	store TokenStore
	log   *zap.Logger
}

func NewUserHandler(store TokenStore, log *zap.Logger) *UserHandler {
	return &UserHandler{store: store, log: log}
}

// RegisterToken stores the device token push notifications are addressed to.
// PUT /users/:id/token
func (h *UserHandler) RegisterToken(c *gin.Context) {
	ctx, span := tracing.Tracer().Start(c.Request.Context(), "RegisterTokenHandler")
	defer span.End()

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Message: "Invalid request body"})
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	userID := c.Param("id")
	if err := h.store.UpsertUserToken(ctx, userID, req.Token, req.Language); err != nil {
		h.log.Error("Failed to register device token",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, Response{Message: "Failed to register device token"})
		return
	}
	c.JSON(http.StatusOK, Response{Message: "Device token registered"})
}
