package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/logger"
)

// RelayConfig holds configuration for the outbox relay service.
// This is a minimal config that only includes what the relay needs.
type RelayConfig struct {
	DatabaseURL           string        `mapstructure:"database_url"`
	RabbitMQURL           string        `mapstructure:"rabbitmq_url"`
	NotificationQueueName string        `mapstructure:"notification_queue_name"`
	HealthPort            string        `mapstructure:"health_port"`
	SweepInterval         time.Duration `mapstructure:"sweep_interval"`
	Log                   logger.Config `mapstructure:"log"`
}

func LoadRelayConfig() (*RelayConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("notification_queue_name", "donation-notifications")
	v.SetDefault("health_port", "8090")
	v.SetDefault("sweep_interval", 90*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	_ = v.BindEnv("database_url", "DB_CONNECTION_STRING")
	_ = v.BindEnv("rabbitmq_url", "RABBITMQ_URL")
	_ = v.BindEnv("notification_queue_name", "NOTIFICATION_QUEUE_NAME")
	_ = v.BindEnv("health_port", "RELAY_HEALTH_PORT")
	_ = v.BindEnv("sweep_interval", "RELAY_SWEEP_INTERVAL")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
	_ = v.BindEnv("log.output_path", "LOG_OUTPUT")

	var cfg RelayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relay config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relay configuration: %w", err)
	}
	return &cfg, nil
}

func (c *RelayConfig) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DB_CONNECTION_STRING environment variable is required")
	}
	if c.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL environment variable is required")
	}
	if c.NotificationQueueName == "" {
		return errors.New("notification queue name is required")
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	return nil
}
