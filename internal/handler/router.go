package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linkcents/linkcents/internal/middleware"
	"github.com/linkcents/linkcents/internal/service"
	"go.uber.org/zap"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	LinkService service.LinkService
	Resolver    service.RedirectResolver
	Dashboard   service.DashboardService
	RateLimiter *middleware.RateLimiter
	AuthKeys    map[string]string
	BaseURL     string
	Logger      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Request logging
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	linkHandler := NewLinkHandler(deps.LinkService, deps.BaseURL, logger)
	redirectHandler := NewRedirectHandler(deps.Resolver)
	dashboardHandler := NewDashboardHandler(deps.Dashboard, logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		// Owner-facing routes sit behind the managed-auth boundary.
		authed := v1.Group("")
		authed.Use(middleware.RequireOwner(deps.AuthKeys))
		{
			authed.POST("/links", linkHandler.CreateLink)
			authed.GET("/links", linkHandler.ListLinks)
			authed.GET("/links/:code", linkHandler.GetLink)
			authed.PATCH("/links/:code", linkHandler.UpdateLink)
			authed.DELETE("/links/:code", linkHandler.DeleteLink)
			authed.GET("/links/:code/stats", dashboardHandler.LinkStats)

			authed.GET("/dashboard/summary", dashboardHandler.Summary)
			authed.GET("/dashboard/top", dashboardHandler.TopLinks)
		}
	}

	// Public redirect path, no auth. The /go/:code monetization page and the
	// /404, /expired, /error terminal pages are external collaborators; this
	// service only redirects to them.
	router.GET("/:code", redirectHandler.Redirect)

	return router
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "linkcents",
	})
}
