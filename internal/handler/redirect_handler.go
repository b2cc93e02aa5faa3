package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkcents/linkcents/internal/service"
)

// RedirectHandler serves GET /:code. The response is always a redirect,
// never a rendered page: the destination, the /go/ monetization detour, or
// one of the terminal pages.
type RedirectHandler struct {
	resolver service.RedirectResolver
}

func NewRedirectHandler(resolver service.RedirectResolver) *RedirectHandler {
	return &RedirectHandler{resolver: resolver}
}

func (h *RedirectHandler) Redirect(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, service.DestNotFound)
		return
	}

	result := h.resolver.Resolve(c.Request.Context(), code, service.RequestMeta{
		UserAgent:    c.Request.UserAgent(),
		Referer:      c.Request.Referer(),
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
		RemoteIP:     c.ClientIP(),
		Country:      c.GetHeader("CF-IPCountry"),
	})

	c.Redirect(http.StatusTemporaryRedirect, result.Location)
}
