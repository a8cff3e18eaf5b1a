package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wattschain/internal/config"
	"wattschain/internal/handlers"
	"wattschain/internal/middleware"
	mongorepo "wattschain/internal/repositories/mongodb"
	"wattschain/internal/services"
	"wattschain/pkg/cache"
	"wattschain/pkg/database"
	"wattschain/pkg/logger"
	"wattschain/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.App.LogLevel),
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Storage
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database).Up(); err != nil {
		appLogger.Fatalf("Failed to run migrations: %v", err)
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		IdleTimeout:  cfg.Redis.IdleTimeout,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache, appLogger)

	// Repositories
	userRepo := mongorepo.NewUserRepository(db.Database, cacheService)
	treeRepo := mongorepo.NewTreeRepository(db.Database)
	commissionRepo := mongorepo.NewCommissionRepository(db.Database)
	walletRepo := mongorepo.NewWalletRepository(db.Database)
	transactionRepo := mongorepo.NewTransactionRepository(db.Database)
	notificationRepo := mongorepo.NewNotificationRepository(db.Database)

	// Services
	notificationService := services.NewNotificationService(notificationRepo, appLogger)
	mlmService := services.NewMLMService(
		db, treeRepo, commissionRepo, walletRepo, userRepo, transactionRepo,
		notificationService, cacheService, cfg.MLM, appLogger,
	)
	fraudService := services.NewFraudService(treeRepo, userRepo, transactionRepo, cfg.MLM, appLogger)
	tokenService := services.NewTokenService(
		db, transactionRepo, walletRepo, userRepo, treeRepo,
		mlmService, cfg.MLM, cfg.Presale, appLogger,
	)
	authService := services.NewAuthService(userRepo, walletRepo, mlmService, cfg.Security, appLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	mlmHandler := handlers.NewMLMHandler(mlmService, notificationService)
	tokenHandler := handlers.NewTokenHandler(tokenService)
	adminHandler := handlers.NewAdminHandler(mlmService, fraudService)

	// Background jobs
	scheduler, err := services.NewScheduler(mlmService, fraudService, cacheService, cfg.MLM, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		appLogger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Router
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, authHandler)
		routes.SetupMLMRoutes(v1, mlmHandler, authService)
		routes.SetupTokenRoutes(v1, tokenHandler, authService)
		routes.SetupAdminRoutes(v1, adminHandler, cfg.Security.AdminAPIKey)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on port %d", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
