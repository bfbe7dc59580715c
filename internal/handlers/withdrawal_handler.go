package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/service"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

type WithdrawalHandler struct {
	manager *service.WithdrawalManager
}

func NewWithdrawalHandler(manager *service.WithdrawalManager) *WithdrawalHandler {
	return &WithdrawalHandler{manager: manager}
}

type withdrawalRequestBody struct {
	UserID        uuid.UUID               `json:"user_id" binding:"required"`
	Amount        int64                   `json:"amount" binding:"required"`
	Method        models.WithdrawalMethod `json:"method" binding:"required"`
	PayoutDetails models.PayoutDetails    `json:"payout_details"`
}

func (h *WithdrawalHandler) Request(c *gin.Context) {
	var body withdrawalRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		telemetry.Logger.Error("Error decoding withdrawal request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	request, err := h.manager.RequestWithdrawal(c.Request.Context(), body.UserID, body.Amount, body.Method, body.PayoutDetails)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"request_id":     request.ID,
		"status":         request.Status,
		"request_amount": request.RequestAmount,
		"fee":            request.Fee,
		"actual_amount":  request.ActualAmount,
	})
}

func (h *WithdrawalHandler) Get(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	request, err := h.manager.Get(c.Request.Context(), requestID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "withdrawal request not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *WithdrawalHandler) Approve(c *gin.Context)  { h.lifecycle(c, h.manager.Approve) }
func (h *WithdrawalHandler) Process(c *gin.Context)  { h.lifecycle(c, h.manager.StartProcessing) }
func (h *WithdrawalHandler) Complete(c *gin.Context) { h.lifecycle(c, h.manager.Complete) }
func (h *WithdrawalHandler) Cancel(c *gin.Context)   { h.lifecycle(c, h.manager.Cancel) }
func (h *WithdrawalHandler) Fail(c *gin.Context)     { h.lifecycle(c, h.manager.MarkFailed) }

type rejectBody struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *WithdrawalHandler) Reject(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	var body rejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejection reason is required"})
		return
	}

	if err := h.manager.Reject(c.Request.Context(), requestID, body.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID, "status": models.WithdrawalRejected})
}

func (h *WithdrawalHandler) Balance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	balance, err := h.manager.WithdrawableBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "withdrawable_balance": balance})
}

func (h *WithdrawalHandler) Statistics(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	stats, err := h.manager.Statistics(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *WithdrawalHandler) lifecycle(c *gin.Context, op func(ctx context.Context, id uuid.UUID) error) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := op(c.Request.Context(), requestID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID})
}
