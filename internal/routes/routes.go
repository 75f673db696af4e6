package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/handlers"
	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	twoFAHandler *handlers.TwoFAHandler,
	oauthHandler *handlers.OAuthHandler,
	store identity.Store,
	logger *slog.Logger,
) {
	// Rate limiting config for credential-bearing endpoints
	rateLimitConfig := middleware.DefaultCredentialRateLimit()

	// Public routes - no authentication required
	router.Get("/user/exists", authHandler.Exists)
	router.Post("/user/auth/first-user", authHandler.CreateFirstUser)
	router.Post("/user/auth/verify-token", authHandler.VerifyToken)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/user/auth/login", authHandler.Login)
		r.Post("/user/auth/verify", authHandler.Verify)
		r.Post("/user/auth/otp", authHandler.RequestOTP)
	})

	router.Get("/user/oauth/providers", oauthHandler.ListProviders)
	router.Post("/user/oauth/endpoint", oauthHandler.Endpoint)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/user/oauth/verify", oauthHandler.Verify)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(store, logger))

		r.Get("/user/me", authHandler.Me)

		r.Get("/user/2fa/challenge", twoFAHandler.Challenge)
		r.Get("/user/2fa/link", twoFAHandler.Link)
		r.Post("/user/2fa/verify", twoFAHandler.VerifyAndEnable)
		r.Post("/user/2fa/disable", twoFAHandler.Disable)
		r.Get("/user/2fa/otp", twoFAHandler.GenerateOTP)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/user/2fa/otp/validate", twoFAHandler.ValidateOTP)
	})
}
