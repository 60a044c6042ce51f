package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tour-booking-api/internal/cache"
	"tour-booking-api/internal/config"
	"tour-booking-api/internal/database"
	domainReview "tour-booking-api/internal/domain/review"
	domainTour "tour-booking-api/internal/domain/tour"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/events"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/metrics"
	"tour-booking-api/internal/notify"
	"tour-booking-api/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = config.EnvDevelopment
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("environment", env),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := db.Migrate(&domainUser.User{}, &domainTour.Tour{}, &domainReview.Review{}); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	redisCache := cache.New(ctx, cfg.Redis)
	defer redisCache.Close()

	publisher, closeEvents := events.Connect(cfg.MQTT)
	defer closeEvents()

	notifier, err := notify.New(cfg.Mail)
	if err != nil {
		logger.Fatal("Failed to configure mail delivery", zap.Error(err))
	}

	app, err := routes.SetupRoutes(ctx, cfg, routes.Dependencies{
		DB:       db.DB,
		Cache:    redisCache,
		Events:   publisher,
		Notifier: notifier,
		Metrics:  metrics.Handler(metrics.NewRegistry()),
		Health:   db.Health,
	})
	if err != nil {
		logger.Fatal("Failed to set up routes", zap.Error(err))
	}

	if interval := cfg.Auth.ResetCleanupInterval(); interval > 0 {
		go app.Users.StartResetTokenCleanupJob(ctx, interval)
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down server", zap.Error(err))
		return
	}

	logger.Info("Server exited properly")
}
