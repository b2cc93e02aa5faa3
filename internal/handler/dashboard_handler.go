package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/linkcents/linkcents/internal/middleware"
	"github.com/linkcents/linkcents/internal/repository"
	"github.com/linkcents/linkcents/internal/service"
	"go.uber.org/zap"
)

// DashboardHandler exposes the read endpoints the dashboard UI consumes.
type DashboardHandler struct {
	dashboard service.DashboardService
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger,
	}
}

// Summary handles GET /api/v1/dashboard/summary.
func (h *DashboardHandler) Summary(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	stats, err := h.dashboard.OwnerSummary(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to get owner summary", zap.String("owner_id", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load summary",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// TopLinks handles GET /api/v1/dashboard/top.
func (h *DashboardHandler) TopLinks(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	links, err := h.dashboard.TopLinks(c.Request.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("Failed to get top links", zap.String("owner_id", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load top links",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}

// LinkStats handles GET /api/v1/links/:code/stats: aggregate counters plus
// the distribution maps.
func (h *DashboardHandler) LinkStats(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	stats, err := h.dashboard.LinkStats(c.Request.Context(), ownerID, c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found",
			})
		case errors.Is(err, service.ErrNotOwner):
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "forbidden",
				Message: "Link belongs to another owner",
			})
		default:
			h.logger.Error("Failed to get link stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to load stats",
			})
		}
		return
	}

	c.JSON(http.StatusOK, stats)
}
