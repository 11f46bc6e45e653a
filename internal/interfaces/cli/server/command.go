// Package server implements the `scripthub server` command: config, logging,
// database, dependency wiring, and graceful shutdown around the HTTP engine.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	licenseusecases "github.com/scripthub-inc/scripthub/internal/application/license/usecases"
	paymentusecases "github.com/scripthub-inc/scripthub/internal/application/payment/usecases"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/auth"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/config"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/database"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/keygen"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/migration"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/ratelimit"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/repository"
	httprouter "github.com/scripthub-inc/scripthub/internal/interfaces/http"
	"github.com/scripthub-inc/scripthub/internal/interfaces/http/handlers"
	"github.com/scripthub-inc/scripthub/internal/interfaces/http/middleware"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the ScriptHub licensing server with the specified configuration.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	log.Infow("starting server", "environment", env, "auto_migrate", autoMigrate)

	gin.SetMode(mapEnvToGinMode(env))
	gin.DefaultWriter = io.Discard

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			log.Warnw("auto-migration enabled in production, this is not recommended")
		}
		if err := migration.NewManager(env).Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Infow("database migrations applied")
	}

	router := buildRouter(cfg, log)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "address", cfg.Server.GetAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Infow("server stopped")
	return nil
}

func buildRouter(cfg *config.Config, log logger.Interface) *httprouter.Router {
	gormDB := database.Get()
	clk := clock.System()
	keyGen := keygen.NewGenerator()
	txMgr := db.NewTransactionManager(gormDB)

	licenseRepo := repository.NewLicenseRepository(gormDB, cfg.StoreRetry, log)
	userRepo := repository.NewUserRepository(gormDB, cfg.StoreRetry, log)
	scriptRepo := repository.NewScriptRepository(gormDB, cfg.StoreRetry, log)
	paymentRepo := repository.NewPaymentRepository(gormDB, cfg.StoreRetry, log)
	sessionStore := repository.NewSessionRepository(gormDB, cfg.StoreRetry, log)

	trialFallback := time.Duration(cfg.License.TrialDurationHours) * time.Hour

	issueTrialUC := licenseusecases.NewIssueTrialUseCase(
		licenseRepo, scriptRepo, userRepo, keyGen, txMgr, clk, trialFallback,
		log.With("usecase", "issue_trial"))
	issuePaidUC := licenseusecases.NewIssuePaidUseCase(
		licenseRepo, scriptRepo, userRepo, keyGen, txMgr, clk,
		log.With("usecase", "issue_paid"))
	validateUC := licenseusecases.NewValidateLicenseUseCase(
		licenseRepo, userRepo, clk, log.With("usecase", "validate_license"))
	revokeUC := licenseusecases.NewRevokeLicenseUseCase(
		licenseRepo, txMgr, clk, log.With("usecase", "revoke_license"))
	bindIPUC := licenseusecases.NewBindIPUseCase(
		userRepo, clk, log.With("usecase", "bind_ip"))
	listUC := licenseusecases.NewListUserLicensesUseCase(
		licenseRepo, userRepo, log.With("usecase", "list_user_licenses"))
	purgeUC := licenseusecases.NewPurgeRevokedUseCase(
		licenseRepo, log.With("usecase", "purge_revoked"))

	recordPaymentUC := paymentusecases.NewRecordPaymentUseCase(
		paymentRepo, licenseRepo, issuePaidUC, txMgr, clk,
		log.With("usecase", "record_payment"))
	refundUC := paymentusecases.NewHandleRefundUseCase(
		paymentRepo, revokeUC, txMgr, clk,
		log.With("usecase", "handle_refund"))

	jwtService := auth.NewJWTService(
		cfg.Auth.JWT.Secret,
		cfg.Auth.JWT.AccessExpMinutes,
		cfg.Auth.JWT.RefreshExpDays,
		cfg.Auth.JWT.RenewalWindowMinutes,
		clk)
	hasher := auth.NewRefreshTokenHasher(0)
	coordinator := auth.NewSessionTokenCoordinator(
		jwtService, sessionStore, hasher, clk,
		cfg.Auth.JWT.RenewalTimeoutSeconds,
		log.With("component", "session_coordinator"))
	sessionService := auth.NewSessionService(
		jwtService, sessionStore, hasher, userRepo, clk,
		cfg.Auth.JWT.RefreshExpDays,
		log.With("component", "session_service"))

	rateLimitMW := middleware.NewRateLimitMiddleware(
		buildRateLimiter(cfg, log),
		ratelimit.Limits{PerMinute: cfg.License.ValidatePerMinute},
		log)

	router := httprouter.NewRouter(cfg,
		httprouter.Handlers{
			Auth:    handlers.NewAuthHandler(sessionService, coordinator, log),
			License: handlers.NewLicenseHandler(issueTrialUC, validateUC, bindIPUC, listUC, log),
			Payment: handlers.NewPaymentHandler(recordPaymentUC, refundUC, log),
			Admin:   handlers.NewAdminHandler(revokeUC, purgeUC, log),
		},
		httprouter.Middlewares{
			Auth:         middleware.NewAuthMiddleware(jwtService, log),
			ServiceToken: middleware.NewServiceTokenMiddleware(cfg.Auth.ServiceToken, log),
			RateLimit:    rateLimitMW,
		},
		log)
	router.SetupRoutes()
	return router
}

func buildRateLimiter(cfg *config.Config, log logger.Interface) ratelimit.RateLimiter {
	if !cfg.Redis.Enabled {
		return ratelimit.NewNopRateLimiter()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnw("redis unavailable, rate limiting disabled", "error", err)
		return ratelimit.NewNopRateLimiter()
	}
	return ratelimit.NewRedisRateLimiter(client, clock.System())
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "staging":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
