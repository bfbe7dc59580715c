package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/settlement-engine/internal/service"
)

// respondError maps the engine's failure classes onto HTTP statuses so the
// UI gets actionable validation messages while infra faults stay generic.
func respondError(c *gin.Context, err error) {
	switch service.Classify(err) {
	case service.FailureValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case service.FailureConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.FailureTransient:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
