// @title CCEE Sentinel API
// @version 1.0
// @description Study content generation for the CCEE exam: mock exams, topic questions, flashcards and notes.
// @host localhost:8080
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ccee-sentinel/internal/bootstrap"
	"ccee-sentinel/internal/config"
	"ccee-sentinel/internal/handler"
	"ccee-sentinel/internal/logger"
	"ccee-sentinel/internal/middleware"

	_ "ccee-sentinel/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	app, err := bootstrap.New(context.Background(), cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize services", zap.Error(err))
	}

	server := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	server.Use(recover.New())
	server.Use(middleware.RequestLogger())
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
		MaxAge:       300,
	}))

	handler.Register(server, handler.Handlers{
		Chat:       handler.NewChatHandler(app.Chat),
		Status:     handler.NewStatusHandler(app.Chains.Health, app.Store, app.Catalog),
		Mock:       handler.NewMockHandler(app.Mock),
		Flashcards: handler.NewFlashcardHandler(app.Flashcards),
		Notes:      handler.NewNotesHandler(app.Notes),
		Cache:      handler.NewCacheHandler(app.Store),
	})
	mountSwagger(server)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := server.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := app.Close(ctx); err != nil {
		appLogger.Warn("Failed to persist cache snapshot", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}

func mountSwagger(r fiber.Router) {
	r.Get("/swagger/*", swagger.HandlerDefault)
}
