package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
	"github.com/creatorhub/settlement-engine/internal/service"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

type SettlementHandler struct {
	aggregator  *service.Aggregator
	scheduler   *service.Scheduler
	settlements interfaces.SettlementRepository
}

func NewSettlementHandler(aggregator *service.Aggregator, scheduler *service.Scheduler, settlements interfaces.SettlementRepository) *SettlementHandler {
	return &SettlementHandler{aggregator: aggregator, scheduler: scheduler, settlements: settlements}
}

func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("authorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	settlement, err := h.settlements.GetByPeriod(c.Request.Context(), authorID, year, time.Month(month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch settlement"})
		return
	}
	if settlement == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "settlement not found"})
		return
	}

	c.JSON(http.StatusOK, settlementResponse(settlement))
}

func (h *SettlementHandler) Settle(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("authorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	settlement, err := h.aggregator.Settle(c.Request.Context(), authorID, year, time.Month(month))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementResponse(settlement))
}

func (h *SettlementHandler) MarkPaid(c *gin.Context) {
	settlementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settlement id"})
		return
	}

	if err := h.aggregator.MarkPaid(c.Request.Context(), settlementID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement_id": settlementID, "status": "paid"})
}

func (h *SettlementHandler) Summary(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("authorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
		return
	}

	summary, err := h.aggregator.Summary(c.Request.Context(), authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunSweep triggers the monthly sweep, normally invoked by the external
// clock trigger. Runs in the background; progress lands in the watermark.
func (h *SettlementHandler) RunSweep(c *gin.Context) {
	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be RFC3339"})
			return
		}
		asOf = parsed
	}

	// Detached from the request context: the sweep outlives the HTTP call.
	go func() {
		if err := h.scheduler.RunMonthlySweep(context.Background(), asOf); err != nil {
			telemetry.Logger.Error("Monthly sweep failed", zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "sweep started", "as_of": asOf})
}

func (h *SettlementHandler) LastSweep(c *gin.Context) {
	watermark, err := h.scheduler.LastSweep(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	if watermark == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sweep recorded for period"})
		return
	}
	c.JSON(http.StatusOK, watermark)
}

func settlementResponse(s *models.Settlement) gin.H {
	return gin.H{
		"id":                 s.ID,
		"author_id":          s.AuthorID,
		"period":             s.Period(),
		"gross_total":        s.GrossTotal,
		"platform_fee_total": s.PlatformFeeTotal,
		"creator_total":      s.CreatorTotal,
		"breakdown": gin.H{
			"subscription": s.SubscriptionTotal,
			"donation":     s.DonationTotal,
			"paid_reading": s.PaidReadingTotal,
			"bonus":        s.BonusTotal,
		},
		"status":       s.Status,
		"processed_at": s.ProcessedAt,
		"paid_at":      s.PaidAt,
	}
}
