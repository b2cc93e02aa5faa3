package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkcents/linkcents/internal/config"
	"github.com/linkcents/linkcents/internal/handler"
	"github.com/linkcents/linkcents/internal/middleware"
	"github.com/linkcents/linkcents/internal/repository"
	"github.com/linkcents/linkcents/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Schema migrations run before the pool opens
	if err := repository.RunMigrations(cfg.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	linkRepo := repository.NewLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)
	clickRepo := repository.NewClickRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	linkService := service.NewLinkService(linkRepo, cacheRepo, statsRepo, logger)

	clickProcessor := service.NewClickProcessor(clickRepo, linkRepo, cacheRepo, statsRepo, logger, service.ProcessorOptions{
		Workers:    cfg.Clicks.Workers,
		BufferSize: cfg.Clicks.BufferSize,
	})
	clickProcessor.Start()
	defer clickProcessor.Stop()

	resolver := service.NewRedirectResolver(linkService, clickProcessor, logger)
	dashboard := service.NewDashboardService(linkService, linkRepo, clickRepo, statsRepo)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	router := handler.NewRouter(handler.RouterDeps{
		LinkService: linkService,
		Resolver:    resolver,
		Dashboard:   dashboard,
		RateLimiter: rateLimiter,
		AuthKeys:    cfg.Auth.APIKeys,
		BaseURL:     cfg.App.BaseURL,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
