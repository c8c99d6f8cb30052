package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/background"
	"github.com/coachdesk/gatehouse/internal/clock"
	"github.com/coachdesk/gatehouse/internal/config"
	"github.com/coachdesk/gatehouse/internal/database"
	"github.com/coachdesk/gatehouse/internal/handlers"
	middlewareCustom "github.com/coachdesk/gatehouse/internal/middleware"
	"github.com/coachdesk/gatehouse/internal/repositories"
	"github.com/coachdesk/gatehouse/internal/routes"
	"github.com/coachdesk/gatehouse/internal/services"
	pkghttp "github.com/coachdesk/gatehouse/pkg/http"
	pkglogger "github.com/coachdesk/gatehouse/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	blockedIPRepo := repositories.NewBlockedIPRepository(db)
	securityLogRepo := repositories.NewSecurityLogRepository(db)
	passwordResetRepo := repositories.NewPasswordResetRepository(db)
	verificationTokenRepo := repositories.NewVerificationTokenRepository(db)

	// Token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	// Timing delay for auth endpoints
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   200,
		RandomDelayMs: 100,
	})

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.ResetURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	systemClock := clock.System{}

	securityLogService := services.NewSecurityLogService(securityLogRepo, systemClock, logger)
	ipGuardService := services.NewIPGuardService(blockedIPRepo, securityLogService, systemClock, logger, cfg.Security.IPBlockDuration)
	loginTrackerService := services.NewLoginTrackerService(userRepo, ipGuardService, securityLogService, systemClock, logger, services.TrackerConfig{
		MaxFailedAttempts: cfg.Security.MaxFailedAttempts,
		LockoutDuration:   cfg.Security.LockoutDuration,
		IPBlockDuration:   cfg.Security.IPBlockDuration,
	})
	accountLockService := services.NewAccountLockService(userRepo, securityLogService, systemClock, logger)
	passwordResetService := services.NewPasswordResetService(
		userRepo,
		passwordResetRepo,
		verificationTokenRepo,
		securityLogService,
		emailService,
		systemClock,
		logger,
		cfg.Security.ResetTokenTTL,
	)
	authService := services.NewAuthService(
		userRepo,
		ipGuardService,
		accountLockService,
		loginTrackerService,
		tokenManager,
		securityLogService,
		timingDelay,
		systemClock,
		logger,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, passwordResetService, ipConfig, logger)
	adminHandler := handlers.NewAdminHandler(accountLockService, ipGuardService, securityLogService, logger)

	// Cleanup manager for stale verification tokens
	cleanupManager := background.NewCleanupManager(passwordResetService, logger, cfg.Security.CleanupInterval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, adminHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
