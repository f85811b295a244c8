package main

import (
	"context"
	"fmt"
	"log"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"dinehub/internal/caching"
	"dinehub/internal/config"
	"dinehub/internal/handlers"
	"dinehub/internal/jobs"
	"dinehub/internal/middleware"
	"dinehub/internal/models"
	"dinehub/internal/repositories"
	"dinehub/internal/services"
	"dinehub/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	pool, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected")

	// Token service enforces the non-placeholder secret invariant.
	tokenSvc, err := services.NewTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTL)*time.Second,
		time.Duration(cfg.RefreshTTL)*time.Second,
	)
	if err != nil {
		logger.Fatal("token service init failed", zap.Error(err))
	}

	planCatalog, err := config.LoadPlanCatalog(cfg.PlanCatalogPath)
	if err != nil {
		logger.Fatal("plan catalog init failed", zap.Error(err))
	}

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)

	// Repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	tokenRepo := repositories.NewTokenRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	methodRepo := repositories.NewPaymentMethodRepo(pool)
	supportRepo := repositories.NewSupportRepo(pool)

	// Services
	razorpaySvc := services.NewRazorpayService(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger)
	authSvc := services.NewAuthService(pool, userRepo, tokenRepo, tokenSvc, logger)
	billingSvc := services.NewBillingService(pool, subscriptionRepo, tenantRepo, userRepo, invoiceRepo, methodRepo, razorpaySvc, planCatalog, logger)
	reducer := services.NewWebhookReducer(pool, subscriptionRepo, cacheSvc, logger)
	supportSvc := services.NewSupportService(supportRepo, logger)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, tokenSvc, userRepo, tokenRepo, cacheSvc, logger)
	billingHandlers := handlers.NewBillingHandlers(billingSvc, logger)
	webhookHandlers := handlers.NewWebhookHandlers(reducer, cfg.RazorpayWebhookSecret, logger)
	supportHandlers := handlers.NewSupportHandlers(supportSvc, logger)
	tenantHandlers := handlers.NewTenantHandlers(tenantRepo, logger)

	// Background cleanup of expired tokens
	tokenCleanup, err := jobs.NewTokenCleanup(tokenRepo, logger)
	if err != nil {
		logger.Fatal("failed to create token cleanup job", zap.Error(err))
	}
	tokenCleanup.Start()
	defer tokenCleanup.Stop()

	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	corsConfig := echoMiddleware.DefaultCORSConfig
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	e.Use(echoMiddleware.CORSWithConfig(corsConfig))
	e.Use(echoMiddleware.RemoveTrailingSlash())

	rateLimiter := middleware.NewRateLimiter()
	e.Use(rateLimiter.PublicLimit())

	// Health endpoints (no auth required)
	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", handlers.ReadinessCheck(pool))

	api := e.Group("/api")
	api.Use(echojwt.WithConfig(middleware.JWTConfig(cfg.JWTSecret, logger)))
	api.Use(middleware.CheckRevocation(cacheSvc, logger))
	api.Use(middleware.RequireIdentity())
	api.Use(rateLimiter.AuthLimit())

	// Public auth routes (skipped by the JWT middleware)
	api.POST("/auth/register", authHandlers.Register)
	api.POST("/auth/login", authHandlers.Login)
	api.POST("/auth/refresh", authHandlers.Refresh)
	api.POST("/auth/forgot-password", authHandlers.ForgotPassword)
	api.POST("/auth/reset-password", authHandlers.ResetPassword)
	api.POST("/contact", supportHandlers.Contact)

	// Billing webhook: trusted via signature, not bearer auth
	api.POST("/billing/webhook", webhookHandlers.Receive)

	// Protected routes
	api.GET("/auth/me", authHandlers.Me)
	api.POST("/auth/logout", authHandlers.Logout)

	api.GET("/tenant", tenantHandlers.GetTenant)
	api.PUT("/tenant", tenantHandlers.UpdateTenant, middleware.RequireRole(models.RoleManager))

	api.GET("/billing/subscription", billingHandlers.GetSubscription)
	api.PUT("/billing/plan", billingHandlers.ChangePlan, middleware.RequireRole(models.RoleManager))
	api.POST("/billing/cancel", billingHandlers.Cancel, middleware.RequireRole(models.RoleManager))
	api.GET("/billing/invoices", billingHandlers.ListInvoices)
	api.GET("/billing/payment-methods", billingHandlers.ListPaymentMethods)
	api.POST("/billing/payment-methods", billingHandlers.AddPaymentMethod, middleware.RequireRole(models.RoleManager))
	api.DELETE("/billing/payment-methods/:id", billingHandlers.RemovePaymentMethod, middleware.RequireRole(models.RoleManager))

	api.POST("/support/tickets", supportHandlers.CreateTicket)
	api.GET("/support/tickets", supportHandlers.ListTickets)

	logger.Info("dinehub server starting", zap.String("version", version), zap.Int("port", cfg.Port))
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
