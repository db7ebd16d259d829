package transactions

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler provides the minimal HTTP surface for transaction ingestion.
type Handler struct {
	store Store
}

// NewHandler creates a new transaction handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up read routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions/:id", h.Get)
}

// RegisterProtectedRoutes sets up mutation routes
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.Ingest)
}

// IngestRequest is the payload for POST /transactions
type IngestRequest struct {
	OccurredAt       time.Time `json:"occurred_at" binding:"required"`
	Amount           float64   `json:"amount" binding:"required,gt=0"`
	Currency         string    `json:"currency"`
	MerchantName     string    `json:"merchant_name" binding:"required"`
	MerchantCategory string    `json:"merchant_category" binding:"required"`
	Zone             string    `json:"zone"`
	Channel          string    `json:"channel"`
	IsOnline         bool      `json:"is_online"`
	Description      string    `json:"description"`
}

// Ingest handles POST /transactions
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	channel := req.Channel
	if channel == "" {
		channel = "card"
	}

	tx := &Transaction{
		ID:               uuid.NewString(),
		OccurredAt:       req.OccurredAt.UTC(),
		CreatedAt:        time.Now().UTC(),
		Amount:           req.Amount,
		Currency:         currency,
		MerchantName:     req.MerchantName,
		MerchantCategory: req.MerchantCategory,
		Zone:             req.Zone,
		Channel:          channel,
		IsOnline:         req.IsOnline,
		Description:      req.Description,
	}

	if err := h.store.Insert(c.Request.Context(), tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "ingest_error",
			"message": "Failed to record transaction",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// Get handles GET /transactions/:id
func (h *Handler) Get(c *gin.Context) {
	tx, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "transaction_error",
			"message": "Failed to load transaction",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}
