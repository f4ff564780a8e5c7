package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/popupmarket/proxybuy/internal/api/handlers"
	"github.com/popupmarket/proxybuy/internal/api/middleware"
	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/metrics"
	"github.com/popupmarket/proxybuy/internal/repository"
	"github.com/popupmarket/proxybuy/internal/service"
)

// AuthService authenticates requests and serves the auth routes
type AuthService interface {
	middleware.Authenticator
	handlers.AuthService
}

// Dependencies are the collaborators shared by the handlers
type Dependencies struct {
	Repos     *repository.Repositories
	Publisher messaging.Publisher
	Store     service.ObjectStore
	Auth      AuthService
	Admins    service.AdminChecker
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	repos := deps.Repos

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(metrics.Middleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.Static("/storage", cfg.Storage.Dir)

	requireAuth := middleware.AuthMiddleware(deps.Auth, logger)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.Auth, logger)
	maxUpload := cfg.Storage.MaxUploadSize

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Auth
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/sign-up", handlers.HandleSignUp(deps.Auth, logger))
			authRoutes.POST("/sign-in", handlers.HandleSignIn(deps.Auth, logger))
			authRoutes.POST("/sign-out", requireAuth, handlers.HandleSignOut(deps.Auth, logger))
			authRoutes.GET("/session", requireAuth, handlers.HandleSession(deps.Auth, logger))
			authRoutes.GET("/oauth/:provider", handlers.HandleOAuthStart(deps.Auth, logger))
			authRoutes.GET("/callback", handlers.HandleOAuthCallback(deps.Auth, logger))
		}

		// Catalog and order placement (public)
		v1.GET("/events", handlers.HandleListEvents(repos, logger))
		v1.GET("/events/:id", handlers.HandleGetEvent(repos, logger))
		v1.GET("/products/:id", handlers.HandleGetProduct(repos, logger))
		v1.POST("/events/:id/quote", handlers.HandleQuote(repos, logger))
		v1.POST("/events/:id/requests",
			optionalAuth,
			middleware.IdempotencyMiddleware(logger),
			handlers.HandleSubmitRequest(repos, deps.Publisher, logger),
		)

		// Signed-in routes
		userRoutes := v1.Group("")
		userRoutes.Use(requireAuth)
		{
			userRoutes.GET("/me/requests", handlers.HandleMyRequests(repos, logger))
			userRoutes.GET("/requests/:id", handlers.HandleGetRequest(repos, logger))
			userRoutes.POST("/requests/:id/room", handlers.HandleEnsureRoom(repos, logger))
			userRoutes.POST("/requests/:id/accept", handlers.HandleAcceptRequest(repos, deps.Publisher, logger))
			userRoutes.POST("/requests/:id/reject", handlers.HandleRejectRequest(repos, deps.Publisher, logger))
			userRoutes.POST("/requests/:id/complete", handlers.HandleCompleteRequest(repos, deps.Publisher, logger))

			userRoutes.GET("/rooms", handlers.HandleListRooms(repos, logger))
			userRoutes.GET("/rooms/:id/messages", handlers.HandleListMessages(repos, logger))
			userRoutes.POST("/rooms/:id/messages", handlers.HandleSendMessage(repos, deps.Publisher, logger))
			userRoutes.GET("/rooms/:id/summary", handlers.HandleRoomSummary(repos, logger))

			userRoutes.GET("/sell/events/:id", handlers.HandleGetRegistration(repos, logger))
			userRoutes.PUT("/sell/events/:id", handlers.HandleSaveRegistration(repos, logger))
			userRoutes.POST("/sell/events/:id/terms/bulk", handlers.HandleBulkTerms(repos, logger))
			userRoutes.GET("/sell/events/:id/products/:productId/terms", handlers.HandleEditorDefaults(repos, logger))
			userRoutes.POST("/sell/certifications", handlers.HandleUploadCertification(repos, deps.Store, maxUpload, logger))
		}

		// Admin routes
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(requireAuth, middleware.AdminMiddleware(deps.Admins, logger))
		{
			adminRoutes.GET("/events", handlers.HandleAdminListEvents(repos, logger))
			adminRoutes.POST("/events", handlers.HandleCreateEvent(repos, logger))
			adminRoutes.PUT("/events/:id", handlers.HandleUpdateEvent(repos, logger))
			adminRoutes.DELETE("/events/:id", handlers.HandleDeleteEvent(repos, logger))

			adminRoutes.GET("/events/:id/products", handlers.HandleAdminListProducts(repos, logger))
			adminRoutes.POST("/events/:id/products", handlers.HandleCreateProduct(repos, logger))
			adminRoutes.PUT("/products/:id", handlers.HandleUpdateProduct(repos, logger))
			adminRoutes.DELETE("/products/:id", handlers.HandleDeleteProduct(repos, logger))

			adminRoutes.GET("/products/:id/options", handlers.HandleAdminListOptions(repos, logger))
			adminRoutes.POST("/products/:id/options", handlers.HandleCreateOption(repos, logger))
			adminRoutes.PUT("/options/:id", handlers.HandleUpdateOption(repos, logger))
			adminRoutes.POST("/options/:id/move", handlers.HandleMoveOption(repos, logger))
			adminRoutes.DELETE("/options/:id", handlers.HandleDeleteOption(repos, logger))

			adminRoutes.GET("/events/:id/agents", handlers.HandleAdminListAgents(repos, logger))
			adminRoutes.POST("/events/:id/agents", handlers.HandleCreateAgent(repos, logger))
			adminRoutes.PUT("/agents/:id", handlers.HandleUpdateAgent(repos, logger))
			adminRoutes.DELETE("/agents/:id", handlers.HandleDeleteAgent(repos, logger))

			adminRoutes.POST("/uploads/:bucket", handlers.HandleAdminUpload(repos, deps.Store, maxUpload, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
