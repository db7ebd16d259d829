package scoring

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/transactions"
)

// Handler exposes the scoring pipeline over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a scoring handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts scoring endpoints on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/score", h.score)
}

type scoreRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

func (h *Handler) score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	result, err := h.svc.ScoreTransaction(c.Request.Context(), req.TransactionID)
	if err != nil {
		if errors.Is(err, transactions.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "transaction not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("scoring failed",
			"transaction_id", req.TransactionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "failed to score transaction",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
