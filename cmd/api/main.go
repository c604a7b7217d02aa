package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paysandbox-service/internal/app"
	"paysandbox-service/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer logger.Sync()

	srv := app.NewServer(config.Load(), logger)

	buildCtx, cancelBuild := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Build(buildCtx); err != nil {
		cancelBuild()
		log.Fatalf("❌ Server failed to initialize: %v", err)
	}
	cancelBuild()

	// Run server in a separate goroutine so we can listen for shutdown signals
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Shutdown finished with error: %v", err)
		return
	}
	log.Println("✅ Server stopped gracefully")
}
