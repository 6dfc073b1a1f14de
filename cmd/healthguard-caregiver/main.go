package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthguard/common/logger"
	"healthguard/internal/config"
	"healthguard/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Logger
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "healthguard-caregiver")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. Session
	sess, err := service.LoadSession(cfg)
	if err != nil {
		log.Fatal("Failed to load session", zap.Error(err))
	}

	// 4. Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Service
	caregiverService, err := service.NewCaregiverService(ctx, cfg, sess, log)
	if err != nil {
		log.Fatal("Failed to create caregiver service", zap.Error(err))
	}

	// 6. Start
	serviceErrChan := make(chan error, 1)
	go func() {
		if err := caregiverService.Start(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	// 7. Wait for a signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serviceErrChan:
		log.Error("Service error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = caregiverService.Stop(shutdownCtx)

	log.Info("Caregiver service stopped")
}
