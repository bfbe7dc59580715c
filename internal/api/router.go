package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creatorhub/settlement-engine/internal/handlers"
	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/service"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

func NewRouter(
	recorder *service.Recorder,
	aggregator *service.Aggregator,
	scheduler *service.Scheduler,
	manager *service.WithdrawalManager,
	settlements interfaces.SettlementRepository,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "settlement-engine"})
	})

	// Revenue routes
	revenueHandler := handlers.NewRevenueHandler(recorder)
	r.POST("/revenue/events", revenueHandler.RecordEvent)
	r.POST("/revenue/events/:id/review", revenueHandler.ReviewEvent)
	r.GET("/revenue/fraud/:authorId", revenueHandler.ScoreFraud)

	// Settlement routes
	settlementHandler := handlers.NewSettlementHandler(aggregator, scheduler, settlements)
	r.GET("/settlements/:authorId/:year/:month", settlementHandler.GetSettlement)
	r.POST("/settlements/:authorId/:year/:month", settlementHandler.Settle)
	r.POST("/settlements/paid/:id", settlementHandler.MarkPaid)
	r.GET("/settlements/:authorId/summary", settlementHandler.Summary)
	r.POST("/settlements/sweep", settlementHandler.RunSweep)
	r.GET("/settlements/sweep/last", settlementHandler.LastSweep)

	// Withdrawal routes
	withdrawalHandler := handlers.NewWithdrawalHandler(manager)
	r.POST("/withdrawals", withdrawalHandler.Request)
	r.GET("/withdrawals/:id", withdrawalHandler.Get)
	r.POST("/withdrawals/:id/approve", withdrawalHandler.Approve)
	r.POST("/withdrawals/:id/process", withdrawalHandler.Process)
	r.POST("/withdrawals/:id/complete", withdrawalHandler.Complete)
	r.POST("/withdrawals/:id/reject", withdrawalHandler.Reject)
	r.POST("/withdrawals/:id/cancel", withdrawalHandler.Cancel)
	r.POST("/withdrawals/:id/fail", withdrawalHandler.Fail)
	r.GET("/creators/:userId/balance", withdrawalHandler.Balance)
	r.GET("/creators/:userId/withdrawals/statistics", withdrawalHandler.Statistics)

	return r
}
