package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkcents/linkcents/internal/middleware"
	"github.com/linkcents/linkcents/internal/models"
	"github.com/linkcents/linkcents/internal/repository"
	"github.com/linkcents/linkcents/internal/service"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service service.LinkService
	baseURL string
	logger  *zap.Logger
}

func NewLinkHandler(service service.LinkService, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		baseURL: baseURL,
		logger:  logger,
	}
}

type CreateLinkRequest struct {
	URL           string     `json:"url" binding:"required"`
	Title         string     `json:"title,omitempty"`
	CustomCode    string     `json:"custom_code,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RedirectDelay *int       `json:"redirect_delay,omitempty"`
	Password      *string    `json:"password,omitempty"`
	AdEnabled     *bool      `json:"ad_enabled,omitempty"`
	BlogPages     *int       `json:"blog_pages,omitempty"`
}

type LinkResponse struct {
	ID          string               `json:"id"`
	ShortCode   string               `json:"short_code"`
	ShortURL    string               `json:"short_url"`
	OriginalURL string               `json:"original_url"`
	Title       string               `json:"title"`
	Status      string               `json:"status"`
	Settings    models.LinkSettings  `json:"settings"`
	Analytics   models.LinkAnalytics `json:"analytics"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type UpdateLinkRequest struct {
	URL       *string              `json:"url,omitempty"`
	Title     *string              `json:"title,omitempty"`
	Status    *string              `json:"status,omitempty"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
	Settings  *models.LinkSettings `json:"settings,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *LinkHandler) linkResponse(link *models.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID.String(),
		ShortCode:   link.ShortCode,
		ShortURL:    h.baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		Title:       link.Title,
		Status:      link.Status,
		Settings:    link.Settings,
		Analytics:   link.Analytics,
		ExpiresAt:   link.ExpiresAt,
		CreatedAt:   link.CreatedAt,
	}
}

// CreateLink handles POST /api/v1/links.
func (h *LinkHandler) CreateLink(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateLinkInput{
		OwnerID:       ownerID,
		OriginalURL:   req.URL,
		Title:         req.Title,
		ExpiresAt:     req.ExpiresAt,
		RedirectDelay: req.RedirectDelay,
		Password:      req.Password,
		AdEnabled:     req.AdEnabled,
		BlogPages:     req.BlogPages,
	}
	if req.CustomCode != "" {
		input.CustomCode = &req.CustomCode
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.linkResponse(link))
}

func (h *LinkHandler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "Invalid URL format",
		})
	case errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_code",
			Message: "Custom code must be 4-12 alphanumeric characters",
		})
	case errors.Is(err, service.ErrDuplicateCustomCode):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "duplicate_code",
			Message: "Custom code is already taken",
		})
	case errors.Is(err, service.ErrCodeGeneration):
		h.logger.Error("Short code generation exhausted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "code_generation_failed",
			Message: "Could not generate a unique short code, try again",
		})
	case errors.Is(err, service.ErrSpamDomain):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "spam_domain",
			Message: "Domain is blacklisted",
		})
	default:
		h.logger.Error("Failed to create link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create link",
		})
	}
}

// ListLinks handles GET /api/v1/links with status/search/order/limit filters.
func (h *LinkHandler) ListLinks(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	opts := models.ListOptions{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		OrderBy:  c.Query("order_by"),
		OrderDir: c.Query("order_dir"),
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}

	links, err := h.service.ListLinks(c.Request.Context(), ownerID, opts)
	if err != nil {
		h.logger.Error("Failed to list links", zap.String("owner_id", ownerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list links",
		})
		return
	}

	responses := make([]LinkResponse, 0, len(links))
	for i := range links {
		responses = append(responses, h.linkResponse(&links[i]))
	}

	c.JSON(http.StatusOK, gin.H{"links": responses, "count": len(responses)})
}

// GetLink handles GET /api/v1/links/:code.
func (h *LinkHandler) GetLink(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	link, err := h.service.GetOwnedLink(c.Request.Context(), ownerID, c.Param("code"))
	if err != nil {
		h.writeOwnedLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.linkResponse(link))
}

// UpdateLink handles PATCH /api/v1/links/:code with partial merge semantics.
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	upd := models.LinkUpdate{
		OriginalURL: req.URL,
		Title:       req.Title,
		Status:      req.Status,
		ExpiresAt:   req.ExpiresAt,
		Settings:    req.Settings,
	}

	if err := h.service.UpdateLink(c.Request.Context(), ownerID, c.Param("code"), upd); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL), errors.Is(err, service.ErrSpamDomain):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_url",
				Message: "Invalid destination URL",
			})
		default:
			h.writeOwnedLinkError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link updated successfully"})
}

// DeleteLink handles DELETE /api/v1/links/:code. Hard delete; click history
// is not cascaded.
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	ownerID, ok := middleware.OwnerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Owner identity required"})
		return
	}

	if err := h.service.DeleteLink(c.Request.Context(), ownerID, c.Param("code")); err != nil {
		h.writeOwnedLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

func (h *LinkHandler) writeOwnedLinkError(c *gin.Context, err error) {
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
		h.logger.Error("Link operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Operation failed",
		})
	}
}
