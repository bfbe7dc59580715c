package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/service"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

type RevenueHandler struct {
	recorder *service.Recorder
}

func NewRevenueHandler(recorder *service.Recorder) *RevenueHandler {
	return &RevenueHandler{recorder: recorder}
}

type recordEventRequest struct {
	AuthorID    uuid.UUID             `json:"author_id" binding:"required"`
	ArticleID   *uuid.UUID            `json:"article_id"`
	Channel     models.RevenueChannel `json:"channel" binding:"required"`
	GrossAmount int64                 `json:"gross_amount"`
	OccurredAt  time.Time             `json:"occurred_at"`
}

func (h *RevenueHandler) RecordEvent(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Error("Error decoding revenue event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	event, err := h.recorder.RecordRevenueEvent(c.Request.Context(), req.AuthorID, req.Channel, req.GrossAmount, req.ArticleID, req.OccurredAt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"event_id":       event.ID,
		"platform_fee":   event.PlatformFee,
		"creator_amount": event.CreatorAmount,
		"review_status":  event.ReviewStatus,
	})
}

type reviewEventRequest struct {
	Accept bool `json:"accept"`
}

func (h *RevenueHandler) ReviewEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req reviewEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.recorder.ReviewEvent(c.Request.Context(), eventID, req.Accept); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "accepted": req.Accept})
}

func (h *RevenueHandler) ScoreFraud(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("authorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}

	score, err := h.recorder.ScoreFraud(c.Request.Context(), authorID, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"author_id":          authorID,
		"is_valid":           score.IsValid,
		"score":              score.Value,
		"confidence":         score.Confidence,
		"reasons":            score.Reasons,
		"recommended_action": score.RecommendedAction,
	})
}
