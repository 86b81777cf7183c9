package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/messaging"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/outbox"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/config"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/logger"
)

func main() {
	cfg, err := config.LoadRelayConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.Named("relay")

	log.Info("starting outbox relay service")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	// the relay breaker validates the connection on first use

	broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.NotificationQueueName, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer broker.Close()
	log.Info("connected to RabbitMQ", zap.String("queue", cfg.NotificationQueueName))

	worker := outbox.NewRelay(db, cfg.DatabaseURL, broker, cfg.SweepInterval, log)

	gin.SetMode(gin.ReleaseMode)
	healthRouter := gin.New()
	healthRouter.Use(gin.Recovery())
	healthRouter.GET("/health", func(c *gin.Context) {
		status, code := "UP", http.StatusOK
		if !worker.IsHealthy() {
			status, code = "DOWN", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "component": "outbox-relay"})
	})
	healthRouter.GET("/health/ready", func(c *gin.Context) {
		status, code := "UP", http.StatusOK
		if !worker.IsReady() {
			status, code = "DOWN", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "component": "outbox-relay"})
	})

	healthServer := &http.Server{
		Addr:    ":" + cfg.HealthPort,
		Handler: healthRouter,
	}
	go func() {
		log.Info("health server listening", zap.String("addr", healthServer.Addr))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		log.Error("relay worker failed, shutting down", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down health server", zap.Error(err))
	}

	log.Info("shutdown complete")
}
