package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"chathub/database"
	"chathub/internal/changefeed"
	"chathub/internal/config"
	"chathub/internal/messaging/handler"
	"chathub/internal/messaging/repository"
	"chathub/internal/messaging/service"
	"chathub/internal/middleware"
	"chathub/internal/websocket"
)

func main() {
	// 1️⃣ Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger := newLogger(cfg)

	// 2️⃣ Connect to the database
	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer database.Close(db, logger)

	// 3️⃣ Redis carries the change feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("could not connect to redis: %v", err)
		}
		cancel()
	}
	defer redisClient.Close()

	publisher := changefeed.NewPublisher(redisClient, logger)
	feed := changefeed.NewFeed(redisClient, logger)

	// 4️⃣ Wire repositories, services, handlers
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db, publisher, logger)
	messageRepo := repository.NewMessageRepository(db, publisher, logger)

	limiter := service.NewSenderLimiter(cfg.SendPerSecond, cfg.SendBurst)
	roomService := service.NewRoomService(roomRepo, userRepo)
	messageService := service.NewMessageService(messageRepo, roomRepo, limiter)
	roomListService := service.NewRoomListService(roomRepo, messageRepo, feed, logger)

	roomHandler := handler.NewRoomHandler(roomService, roomListService)
	messageHandler := handler.NewMessageHandler(messageService)
	wsHandler := websocket.NewHandler(messageService, roomService, feed, cfg.PageSize, logger)

	// 5️⃣ Setup Gin
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/check-conn", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"message": "API is alive and database connected ✅",
		})
	})

	chat := r.Group("/api/chat")
	chat.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		roomHandler.RegisterRoutes(chat)
		messageHandler.RegisterRoutes(chat)
		chat.GET("/rooms/:id/ws", wsHandler.Serve)
	}

	// 6️⃣ Serve with graceful shutdown
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("🚀 Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", "error", err)
	}
	logger.Info("👋 Server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
