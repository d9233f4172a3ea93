package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackwatters45/blog-api/config"
	"github.com/jackwatters45/blog-api/database"
	"github.com/jackwatters45/blog-api/handlers"
	"github.com/jackwatters45/blog-api/logger"
	"github.com/jackwatters45/blog-api/media"
	"github.com/jackwatters45/blog-api/middleware"
	"github.com/jackwatters45/blog-api/routes"
	"github.com/jackwatters45/blog-api/websocket"
)

func main() {
	logger.Info.Println("Starting blog API...")

	cfg, err := config.Load()
	if err != nil {
		logger.Error.Fatalf("config: %v", err)
	}

	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := connectWithRetry(cfg, 3)
	if err != nil {
		logger.Error.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := store.Disconnect(); err != nil {
			logger.Warn.Printf("mongo disconnect: %v", err)
		}
	}()
	logger.Info.Println("MongoDB connected")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureIndexes(ctx); err != nil {
		cancel()
		logger.Error.Fatalf("failed to create indexes: %v", err)
	}
	cancel()

	limiter := newLimiter(cfg)

	// Only assign when configured so the handlers see a nil interface.
	var images handlers.MediaStore
	if cfg.CloudinaryURL != "" {
		cld, err := media.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			logger.Error.Fatalf("cloudinary: %v", err)
		}
		images = cld
	} else {
		logger.Warn.Println("CLOUDINARY_URL not set, avatar uploads are disabled")
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := websocket.NewHub(cfg.CORSOrigins)
	go hub.Run(runCtx)

	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	auth := middleware.NewAuthenticator(tokens, store, cfg.CookieSecure)
	h := handlers.New(store, auth, images, hub)
	router := routes.Setup(cfg, h, auth, limiter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info.Println("Shutting down server...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("forced shutdown: %v", err)
	}
	logger.Info.Println("Server stopped")
}

func connectWithRetry(cfg *config.Config, attempts int) (*database.Store, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		store, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		cancel()
		if err == nil {
			return store, nil
		}
		lastErr = err
		logger.Warn.Printf("MongoDB connection attempt %d failed: %v", i, err)
		time.Sleep(2 * time.Second)
	}
	return nil, lastErr
}

// newLimiter shares rate limits through Redis when it is reachable and
// falls back to a per-process limiter otherwise.
func newLimiter(cfg *config.Config) middleware.Limiter {
	if cfg.RedisAddr == "" {
		return middleware.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn.Printf("Redis unavailable (%v), using in-memory rate limiting", err)
		client.Close()
		return middleware.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
	}
	logger.Info.Println("Redis connected, rate limits are shared")
	return middleware.NewRedisLimiter(client, cfg.RateLimit, cfg.RateWindow)
}
