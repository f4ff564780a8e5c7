package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/popupmarket/proxybuy/internal/api"
	"github.com/popupmarket/proxybuy/internal/auth"
	"github.com/popupmarket/proxybuy/internal/cache"
	"github.com/popupmarket/proxybuy/internal/config"
	"github.com/popupmarket/proxybuy/internal/messaging"
	"github.com/popupmarket/proxybuy/internal/oauth"
	"github.com/popupmarket/proxybuy/internal/repository/postgres"
	"github.com/popupmarket/proxybuy/internal/service"
	"github.com/popupmarket/proxybuy/internal/storage"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}

	// Connect to redis
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Event publisher
	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := messaging.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
		}
		publisher = amqpPublisher
	} else {
		logger.Info("RABBITMQ_URL not set, domain events are dropped")
	}
	defer publisher.Close()

	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal("Failed to prepare storage", zap.Error(err))
	}

	repos := postgres.NewRepositories(db, logger)
	admins := cache.NewAdminCache(redisClient, repos.Admin, cfg.Redis.AdminCacheTTL, logger)

	var providers []service.IdentityProvider
	if cfg.OAuth.Enabled() {
		providers = append(providers, oauth.NewGoogleProvider(cfg.OAuth, logger))
	}

	authService := service.NewAuthService(
		repos,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		cache.NewSessionStore(redisClient),
		cache.NewOAuthStateStore(redisClient, cfg.OAuth.StateTTL),
		admins,
		logger,
		providers...,
	)

	router := api.NewRouter(cfg, api.Dependencies{
		Repos:     repos,
		Publisher: publisher,
		Store:     store,
		Auth:      authService,
		Admins:    admins,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}
