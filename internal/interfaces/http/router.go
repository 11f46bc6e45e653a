// Package http wires the gin engine: middleware chain, route groups, and the
// handler set behind them.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/config"
	"github.com/scripthub-inc/scripthub/internal/interfaces/http/handlers"
	"github.com/scripthub-inc/scripthub/internal/interfaces/http/middleware"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	License *handlers.LicenseHandler
	Payment *handlers.PaymentHandler
	Admin   *handlers.AdminHandler
}

// Middlewares groups the request-gating middleware the routes depend on.
type Middlewares struct {
	Auth         *middleware.AuthMiddleware
	ServiceToken *middleware.ServiceTokenMiddleware
	RateLimit    *middleware.RateLimitMiddleware
}

type Router struct {
	engine      *gin.Engine
	config      *config.Config
	handlers    Handlers
	middlewares Middlewares
	logger      logger.Interface
}

func NewRouter(cfg *config.Config, h Handlers, m Middlewares, log logger.Interface) *Router {
	return &Router{
		engine:      gin.New(),
		config:      cfg,
		handlers:    h,
		middlewares: m,
		logger:      log,
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) SetupRoutes() {
	handlers.RegisterBindings()

	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.SecurityHeaders())
	if len(r.config.Server.AllowedOrigins) > 0 {
		r.engine.Use(middleware.CORS(r.config.Server.AllowedOrigins))
	}

	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	requireAuth := r.middlewares.Auth.RequireAuth()
	requireService := r.middlewares.ServiceToken.RequireServiceToken()

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/sessions", requireService, r.handlers.Auth.EstablishSession)
		authRoutes.POST("/refresh", r.handlers.Auth.Refresh)
		authRoutes.DELETE("/sessions/current", requireAuth, r.handlers.Auth.Logout)
	}

	licenseRoutes := api.Group("/licenses")
	{
		// The key is the credential on the validate path; every installed
		// script hits it on startup, hence the per-IP throttle.
		licenseRoutes.POST("/validate",
			r.middlewares.RateLimit.LimitByClientIP("validate"),
			r.handlers.License.Validate)
		licenseRoutes.POST("/trial", requireAuth, r.handlers.License.IssueTrial)
	}

	userRoutes := api.Group("/users/me", requireAuth)
	{
		userRoutes.GET("/licenses", r.handlers.License.ListMine)
		userRoutes.PUT("/ip", r.handlers.License.BindIP)
	}

	paymentRoutes := api.Group("/payments", requireService)
	{
		paymentRoutes.POST("", r.handlers.Payment.RecordPayment)
		paymentRoutes.POST("/refund", r.handlers.Payment.HandleRefund)
	}

	adminRoutes := api.Group("/admin", requireService)
	{
		adminRoutes.POST("/licenses/:id/revoke", r.handlers.Admin.RevokeLicense)
		adminRoutes.DELETE("/licenses/revoked", r.handlers.Admin.PurgeRevoked)
	}
}
