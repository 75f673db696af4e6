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

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/background"
	"github.com/forgeworks/authgate/internal/config"
	"github.com/forgeworks/authgate/internal/handlers"
	"github.com/forgeworks/authgate/internal/identity"
	middlewareCustom "github.com/forgeworks/authgate/internal/middleware"
	"github.com/forgeworks/authgate/internal/routes"
	"github.com/forgeworks/authgate/internal/services"
	"github.com/forgeworks/authgate/internal/stores"
	pkglogger "github.com/forgeworks/authgate/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Identity store client
	store := identity.NewClient(
		cfg.Identity.URL,
		cfg.Identity.AdminEmail,
		cfg.Identity.AdminPassword,
		cfg.Identity.Timeout,
		logger,
	)

	// Ephemeral state stores
	bridgeStore := stores.NewBridgeStore(cfg.Auth.BridgeTTL)
	twoFAStore := stores.NewTwoFAStore()
	relayStore := stores.NewRelayStore(cfg.Auth.RelayTTL)

	// Background sweep of 2FA workflow state
	sweeper := background.NewSweeper(twoFAStore, logger, cfg.Auth.SweepInterval)

	auditLogger := pkglogger.NewAuditLogger(logger)
	totpManager := auth.NewTOTPManager(cfg.Auth.Issuer)

	// Initialize services
	loginService := services.NewLoginService(store, bridgeStore, totpManager, cfg.Auth.MasterKey, logger, auditLogger)
	twoFAService := services.NewTwoFAService(store, twoFAStore, totpManager, cfg.Auth.MasterKey, services.TwoFAWindows{
		Setup:     cfg.Auth.SetupTTL,
		Challenge: cfg.Auth.ChallengeTTL,
		Disable:   cfg.Auth.DisableTTL,
	}, logger, auditLogger)
	oauthService := services.NewOAuthService(store, relayStore, bridgeStore, logger, auditLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginService)
	twoFAHandler := handlers.NewTwoFAHandler(twoFAService)
	oauthHandler := handlers.NewOAuthHandler(oauthService)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, twoFAHandler, oauthHandler, store, logger)

	// Health check with identity store reachability
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if _, err := store.ListOAuthProviders(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","identity_store":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","identity_store":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

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

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
