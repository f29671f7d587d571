package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BitGladiator/image-queue-processor/internal/client"
	"github.com/BitGladiator/image-queue-processor/internal/config"
	"github.com/BitGladiator/image-queue-processor/internal/handler"
	"github.com/BitGladiator/image-queue-processor/internal/metrics"
	"github.com/BitGladiator/image-queue-processor/internal/middleware"
	"github.com/BitGladiator/image-queue-processor/internal/service"
	"github.com/BitGladiator/image-queue-processor/internal/store"
	"github.com/BitGladiator/image-queue-processor/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client (rate limiting only; the limiter fails open)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize history database
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database dir: %v", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}

	historyStore := store.NewHistoryStore(db)
	if err := historyStore.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate history database: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize metrics aggregator
	aggregator := metrics.NewAggregator()

	// Initialize worker client and services
	workerClient := client.NewWorkerClient(&cfg.Worker)
	syncService := service.NewSyncService(workerClient, historyStore, aggregator, cfg.Storage.ResultsDir)
	uploadService := service.NewUploadService(cfg.Storage.UploadDir)

	// Initialize handlers
	processHandler := handler.NewProcessHandler(syncService, uploadService, validate)
	historyHandler := handler.NewHistoryHandler(historyStore, validate)
	adminHandler := handler.NewAdminHandler(historyStore, validate)
	healthHandler := handler.NewHealthHandler(aggregator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    25 * 1024 * 1024, // 25MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.Metrics(aggregator))

	// Health and metrics
	app.Get("/health", healthHandler.Health)
	app.Get("/metrics", healthHandler.Metrics)

	// API routes
	api := app.Group("/api")

	api.Post("/process", rateLimiter.ProcessLimit(cfg.RateLimit.ProcessPerMin), processHandler.Submit)
	api.Get("/jobs/:jobId", processHandler.Status)

	api.Get("/history", historyHandler.List)
	api.Get("/history/stats", historyHandler.Stats)

	// Admin routes
	admin := api.Group("/admin", authMiddleware.Authenticate())
	admin.Delete("/history/:jobId", adminHandler.Delete)
	admin.Post("/history/purge", adminHandler.Purge)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
