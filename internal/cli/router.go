package cli

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/esumbrandon/Schnei/internal/dashboard"
	"github.com/esumbrandon/Schnei/internal/middleware"
	"github.com/esumbrandon/Schnei/internal/notification"
	"github.com/esumbrandon/Schnei/internal/subscription"
)

type routerDeps struct {
	log           *slog.Logger
	auth          middleware.AuthConfig
	subscriptions subscription.Service
	stats         dashboard.StatsProvider
	tracker       dashboard.EventTracker
	notifications notification.Store
	enableSwagger bool
}

// newRouter builds the gin engine: public health and docs routes, and the
// token-protected API under /api/v1.
func newRouter(deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.enableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(deps.auth))

	subscription.NewHandler(deps.subscriptions, deps.log).RegisterRoutes(api)
	dashboard.NewHandler(deps.stats, deps.tracker, deps.log).RegisterRoutes(api)
	notification.NewHandler(deps.notifications, deps.log).RegisterRoutes(api)

	return router
}

// withCORS wraps the engine for browser clients on the allowed origins.
func withCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(h)
}
