package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/hanzideck/flashcard-api/internal/auth"
	"github.com/hanzideck/flashcard-api/internal/handlers"
	"github.com/hanzideck/flashcard-api/internal/middleware"
)

// Dependencies bundles what the route table needs
type Dependencies struct {
	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	TokenManager  *auth.TokenManager
	Users         auth.UserRepository
	Revocations   auth.SessionRevocationChecker
	RateLimit     middleware.RateLimitConfig
	Logger        *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	router.Get("/health", deps.HealthHandler.Health)

	router.Route("/auth", func(r chi.Router) {
		// Request volume cap; failed credentials are counted separately by the login guard
		r.Use(middleware.RateLimitByIP(deps.RateLimit))

		// Public routes
		r.Get("/config", deps.AuthHandler.Config)
		r.Post("/register", deps.AuthHandler.Register)
		r.Post("/login", deps.AuthHandler.Login)
		r.Post("/logout", deps.AuthHandler.Logout)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(deps.TokenManager, deps.Users, deps.Revocations, deps.Logger))

			r.Get("/me", deps.AuthHandler.Me)
			r.Post("/refresh", deps.AuthHandler.Refresh)
			r.Put("/password", deps.AuthHandler.ChangePassword)
		})
	})
}
