package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/logger"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        logger.Config    `mapstructure:"log"`

	JWTPublicKey *rsa.PublicKey `mapstructure:"-"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// StoreConfig picks the process store. The postgres driver also enables
// the transactional outbox for notifications.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
}

type SchedulingConfig struct {
	Driver            string        `mapstructure:"driver"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Rooms             int           `mapstructure:"rooms"`
	RoomCapacity      int           `mapstructure:"room_capacity"`
	EmergencyCapacity int           `mapstructure:"emergency_capacity"`
	SlotDuration      time.Duration `mapstructure:"slot_duration"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
}

// Load reads an optional YAML file named by CONFIG_FILE, then the
// environment (a local .env file is honoured). Environment wins.
func Load() (*Config, error) {
	// .env is optional; missing file is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	publicKey, err := loadPublicKey(cfg.Auth.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	cfg.JWTPublicKey = publicKey

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("store.driver", DriverMemory)

	v.SetDefault("scheduling.driver", DriverMemory)
	v.SetDefault("scheduling.timeout", 5*time.Second)
	v.SetDefault("scheduling.rooms", 16)
	v.SetDefault("scheduling.room_capacity", 6)
	v.SetDefault("scheduling.emergency_capacity", 8)
	v.SetDefault("scheduling.slot_duration", time.Hour)

	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.public_key_path", "/etc/certs/public.pem")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("server.mode", "GIN_MODE")
	_ = v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	_ = v.BindEnv("store.driver", "STORE_DRIVER")
	_ = v.BindEnv("store.database_url", "DB_CONNECTION_STRING")
	_ = v.BindEnv("scheduling.driver", "SCHEDULER_DRIVER")
	_ = v.BindEnv("scheduling.timeout", "SCHEDULING_TIMEOUT")
	_ = v.BindEnv("scheduling.slot_duration", "SLOT_DURATION")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("auth.public_key_path", "PUBLIC_KEY_PATH")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
	_ = v.BindEnv("log.output_path", "LOG_OUTPUT")
}

// Validate reports the first setting that makes the config unusable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DB_CONNECTION_STRING is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Scheduling.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Address == "" {
			return errors.New("REDIS_ADDRESS is required for the redis scheduler")
		}
	default:
		return fmt.Errorf("unknown scheduler driver %q", c.Scheduling.Driver)
	}

	if c.Scheduling.Timeout <= 0 {
		return errors.New("scheduling timeout must be positive")
	}
	if c.Scheduling.Rooms <= 0 || c.Scheduling.RoomCapacity <= 0 {
		return errors.New("room count and capacity must be positive")
	}
	if c.Scheduling.EmergencyCapacity < c.Scheduling.RoomCapacity {
		return errors.New("emergency capacity cannot be below normal capacity")
	}
	if c.Scheduling.SlotDuration <= 0 {
		return errors.New("slot duration must be positive")
	}
	if c.Auth.PublicKeyPath == "" {
		return errors.New("PUBLIC_KEY_PATH is required")
	}
	return nil
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(keyData)
}
