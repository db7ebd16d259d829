package alerts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sentinelai/sentinel/internal/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler exposes the alert workflow over HTTP.
type Handler struct {
	manager *Manager
}

// NewHandler creates an alerts handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts read endpoints on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alerts", h.list)
	rg.GET("/alerts/:id", h.get)
	rg.GET("/alerts/:id/events", h.listEvents)
}

// RegisterProtectedRoutes mounts the status mutation endpoint; the caller
// wraps the group with authentication.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/alerts/:id", h.updateStatus)
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	minScore, _ := strconv.Atoi(c.DefaultQuery("min_score", "0"))

	status := Status(c.Query("status"))
	if status != "" && !ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "unknown status: " + string(status),
		})
		return
	}

	filter := ListFilter{
		Status:   status,
		MinScore: minScore,
		SortBy:   c.DefaultQuery("sort", "priority"),
		Order:    c.DefaultQuery("order", "desc"),
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	}

	alerts, total, err := h.manager.List(c.Request.Context(), filter)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "failed to list alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":    alerts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) get(c *gin.Context) {
	alert, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to get alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) listEvents(c *gin.Context) {
	events, err := h.manager.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to list alert events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type updateStatusRequest struct {
	Status  Status `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	alert, err := h.manager.UpdateStatus(c.Request.Context(), c.Param("id"), StatusChange{
		NewStatus:     req.Status,
		Comment:       req.Comment,
		Actor:         c.GetHeader("X-Actor"),
		CorrelationID: logging.RequestID(c.Request.Context()),
	})
	if err != nil {
		h.respondError(c, err, "failed to update alert status")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "alert not found",
		})
	case errors.Is(err, ErrCommentRequired), errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	default:
		logging.L(c.Request.Context()).Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": fallback,
		})
	}
}
