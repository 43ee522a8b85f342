// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present; real environment
// variables always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	strutil "readykids/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Server    Server
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	RateLimit RateLimit
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Port            int           `env:"PORT,default=3000"`
	AllowedOrigin   string        `env:"CORS_ALLOWED_ORIGIN,default=*"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES,default=1048576"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Addr is the listen address for the HTTP server.
func (s Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Database struct {
	URL             string        `env:"DATABASE_URL,default=postgres://localhost:5432/readykids?sslmode=disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=5m"`
	MigrateOnStart  bool          `env:"DB_MIGRATE_ON_START,default=true"`
}

// RedisConfig is optional; an empty URL disables Redis.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE,default=10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS,default=2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT,default=5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT,default=3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT,default=3s"`
}

// Kafka is optional; with no brokers lifecycle events go to the log.
type Kafka struct {
	Brokers    string `env:"KAFKA_BROKERS"`
	Topic      string `env:"KAFKA_TOPIC,default=readykids.applications"`
	Partitions int32  `env:"KAFKA_TOPIC_PARTITIONS,default=3"`
	BufferSize int    `env:"EVENT_BUFFER_SIZE,default=1024"`
}

// BrokerList splits the comma separated broker addresses.
func (k Kafka) BrokerList() []string {
	return strutil.SplitList(k.Brokers)
}

// RateLimit bounds public application submissions per client address.
type RateLimit struct {
	Submissions int           `env:"SUBMISSION_RATE_LIMIT,default=20"`
	Window      time.Duration `env:"SUBMISSION_RATE_WINDOW,default=1m"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// Load reads .env (if present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.RateLimit.Submissions <= 0 {
		return fmt.Errorf("SUBMISSION_RATE_LIMIT must be positive, got %d", c.RateLimit.Submissions)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("SUBMISSION_RATE_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}
