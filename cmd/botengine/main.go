package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradecore/internal/config"
	"tradecore/internal/logger"
	"tradecore/internal/service"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("[botengine] loaded .env")
	}

	cfg := config.Load()
	logger.Init("botengine", cfg.LogLevel)
	log.Printf("[botengine] symbols=%v timeframes=%v execution=%s",
		cfg.ParseSymbols(), cfg.ParseTimeframes(), cfg.ExecutionMode)

	svc, err := service.New(cfg)
	if err != nil {
		log.Fatalf("[botengine] init failed: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[botengine] shutdown signal received")
		cancel()
	}()

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("[botengine] fatal: %v", err)
	}
	log.Println("[botengine] stopped")
}
