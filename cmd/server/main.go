// TalkWise - English Learning Assistant Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/talkwise/talkwise/internal/ai"
	"github.com/talkwise/talkwise/internal/api"
	"github.com/talkwise/talkwise/internal/auth"
	"github.com/talkwise/talkwise/internal/chat"
	"github.com/talkwise/talkwise/internal/config"
	"github.com/talkwise/talkwise/internal/grammar"
	"github.com/talkwise/talkwise/internal/middleware"
	"github.com/talkwise/talkwise/internal/speech"
	"github.com/talkwise/talkwise/internal/store"
)

const otpCleanupInterval = time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	aiClient := ai.NewClient(cfg.OpenAI)

	transcriber, err := speech.NewTranscriber(aiClient, cfg.AudioDir)
	if err != nil {
		slog.Error("Failed to initialize transcriber", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	authenticator := auth.NewAuthenticator(cfg.JWTSecret, repo, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	otpService := auth.NewOTPService(repo, auth.LogMailer{}, authenticator, cfg.OTPTTL)
	topics := grammar.NewResolver(repo)
	registry := chat.NewRegistry()

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(repo)
	authHandler := auth.NewHandler(otpService)
	grammarHandler := grammar.NewHandler(repo)
	historyHandler := chat.NewHistoryHandler(repo)
	wsHandler := chat.NewWebSocketHandler(repo, authenticator, topics, aiClient, transcriber,
		registry, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	// Same origin policy as the WebSocket handler: open in development,
	// pinned to the frontend otherwise.
	corsOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))

	// Public routes.
	healthHandler.RegisterRoutes(r)
	authHandler.RegisterRoutes(r)
	grammarHandler.RegisterRoutes(r)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authenticator))
		historyHandler.RegisterRoutes(r)
	})

	// WebSocket endpoint authenticates in-band via query token.
	r.Get("/ws/chat/{topicID}", wsHandler.ServeHTTP)

	// Create server.
	// Note: streaming completions over WebSocket need long-lived writes,
	// so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start OTP cleanup worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otpService.StartCleanupWorker(ctx, otpCleanupInterval)
	slog.Info("OTP cleanup worker started", "interval", otpCleanupInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
