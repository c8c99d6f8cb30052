package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/coachdesk/gatehouse/internal/auth"
	"github.com/coachdesk/gatehouse/internal/handlers"
	"github.com/coachdesk/gatehouse/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes, rate limited per source IP
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/verify-reset-token", authHandler.VerifyResetToken)
		r.Post("/auth/reset-password", authHandler.ResetPassword)
	})

	// Administrative routes, authentication required. Restricting them
	// to admin principals is the deploying application's concern; this
	// service only verifies the token.
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/admin/users/{id}/status", adminHandler.GetAccountStatus)
		r.Post("/admin/users/{id}/lock", adminHandler.LockAccount)
		r.Post("/admin/users/{id}/unlock", adminHandler.UnlockAccount)
		r.Get("/admin/users/{id}/security-trail", adminHandler.GetSecurityTrail)
		r.Post("/admin/ips/block", adminHandler.BlockIP)
		r.Post("/admin/ips/unblock", adminHandler.UnblockIP)
	})
}
