package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hanzideck/flashcard-api/internal/auth"
	"github.com/hanzideck/flashcard-api/internal/background"
	"github.com/hanzideck/flashcard-api/internal/config"
	"github.com/hanzideck/flashcard-api/internal/database"
	"github.com/hanzideck/flashcard-api/internal/handlers"
	middlewareCustom "github.com/hanzideck/flashcard-api/internal/middleware"
	"github.com/hanzideck/flashcard-api/internal/models"
	"github.com/hanzideck/flashcard-api/internal/repositories"
	"github.com/hanzideck/flashcard-api/internal/routes"
	"github.com/hanzideck/flashcard-api/internal/services"
	pkgauth "github.com/hanzideck/flashcard-api/pkg/auth"
	pkghttp "github.com/hanzideck/flashcard-api/pkg/http"
	pkglogger "github.com/hanzideck/flashcard-api/pkg/logger"
	"github.com/spf13/cobra"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	logger := newLogger(cfg.Server.SlogLevel())
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if migrateOnStart {
		if err := database.Migrate(ctx, cfg.Database.DSN(), database.MigrateUp); err != nil {
			return err
		}
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	revokeRepo := repositories.NewSessionRevocationRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// One guard per process, shared by every login request
	guard := auth.NewLoginGuard(auth.LoginGuardConfig{
		MaxAttempts:     cfg.Auth.LoginMaxAttempts,
		LockoutDuration: cfg.Auth.LoginLockoutDuration,
		OnLockout:       auditLogger.LogLockout,
	}, auth.SystemClock{}, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.SessionExpiry, auth.SystemClock{})

	ipConfig := &pkghttp.IPConfig{
		TrustForwardedHeaders: cfg.Server.TrustForwardedHeaders,
		TrustedProxies:        cfg.Server.TrustedProxies,
	}

	// Initialize services and handlers
	authService := services.NewAuthService(userRepo, revokeRepo, guard, tokenManager, logger, auditLogger, cfg.Auth.RegistrationEnabled)

	authHandler := handlers.NewAuthHandler(authService, handlers.AuthHandlerConfig{
		Cookie:         auth.CookieConfig{Secure: cfg.Auth.SecureCookies},
		SessionExpiry:  cfg.Auth.SessionExpiry,
		IPConfig:       ipConfig,
		OAuthEnabled:   cfg.OAuth.Enabled,
		OAuthProviders: cfg.OAuth.Providers(),
	}, logger)
	healthHandler := handlers.NewHealthHandler(db, logger)

	// Bootstrap first admin user if configured
	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router. Client addresses come from pkghttp.ExtractClientIP, which applies the
	// proxy trust settings, so chi's RealIP is not installed.
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:   authHandler,
		HealthHandler: healthHandler,
		TokenManager:  tokenManager,
		Users:         userRepo,
		Revocations:   revokeRepo,
		RateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.Auth.AuthRequestsPerMinute,
			IPConfig:          ipConfig,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(revokeRepo, guard, logger, cfg.Auth.GuardSweepInterval)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		cleanupManager.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL, ADMIN_USERNAME and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminUsername == "" || adminPassword == "" {
		logger.Debug("admin bootstrap not configured, skipping")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	username, err := services.NormalizeUsername(adminUsername)
	if err != nil {
		return fmt.Errorf("invalid ADMIN_USERNAME: %w", err)
	}
	if err := pkgauth.ValidatePassword(adminPassword); err != nil {
		return fmt.Errorf("invalid ADMIN_PASSWORD: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = userRepo.Create(ctx, &models.User{
		Email:        adminEmail,
		Username:     username,
		PasswordHash: hashedPassword,
		IsActive:     true,
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(adminEmail)))
	return nil
}
