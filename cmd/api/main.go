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

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/handler"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/metrics"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/middleware"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/notification"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/repository"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/scheduling"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/config"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/services"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("donation process service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo   ports.ProcessRepository
		checks []handler.DependencyCheck
	)

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		// transition events reach the outbox inside the process write
		repo = repository.NewSQLRepository(db)
		checks = append(checks, handler.DependencyCheck{Name: "database", Ping: db.PingContext})
		log.Info("using postgres process store with transactional outbox")
	default:
		repo = repository.NewMemoryRepository()
		log.Info("using in-memory process store")
	}

	policy := scheduling.RoomPolicy{
		Rooms:             cfg.Scheduling.Rooms,
		Capacity:          cfg.Scheduling.RoomCapacity,
		EmergencyCapacity: cfg.Scheduling.EmergencyCapacity,
		SlotDuration:      cfg.Scheduling.SlotDuration,
	}

	var scheduler ports.SlotScheduler
	switch cfg.Scheduling.Driver {
	case config.DriverRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		redisScheduler := scheduling.NewRedisScheduler(redisClient, policy, log)
		scheduler = redisScheduler
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: redisScheduler.Ping})
		log.Info("using redis slot scheduler", zap.String("address", cfg.Redis.Address))
	default:
		scheduler = scheduling.NewMemoryScheduler(policy)
		log.Info("using in-memory slot scheduler")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	workflow := services.NewWorkflowService(repo, scheduler, notification.NewLogNotifier(log), log,
		services.WithMetrics(metrics.NewPrometheus(registry)),
		services.WithSchedulingTimeout(cfg.Scheduling.Timeout),
	)

	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(handler.RouterConfig{
		Workflow:       workflow,
		Auth:           middleware.NewAuthMiddleware(cfg.JWTPublicKey, log),
		Health:         handler.NewHealthHandler(checks...),
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}
