package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/meract/pkg/logger"
	"github.com/dmitrymomot/meract/pkg/static"
	"github.com/dmitrymomot/meract/pkg/storage"
)

// Server modes accepted by ServerConfig.Mode.
const (
	ModeSocket   = "socket"
	ModeHTTP     = "http"
	ModeFastHTTP = "fasthttp"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Static    StaticConfig    `yaml:"static"`
	Storage   storage.Config  `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig configures the raw socket server.
type ServerConfig struct {
	Host        string        `yaml:"host" env:"MERACT_HOST"`
	Port        int           `yaml:"port" env:"MERACT_PORT"`
	BufferSize  int           `yaml:"buffer_size" env:"MERACT_BUFFER_SIZE"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"MERACT_READ_TIMEOUT"`
	Mode        string        `yaml:"mode" env:"MERACT_MODE"`
}

// HTTPConfig configures the net/http and fasthttp runtimes.
type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

// StaticConfig selects where static files come from. Root wins over S3
// when both are set; neither disables static serving.
type StaticConfig struct {
	Root string          `yaml:"root" env:"STATIC_ROOT"`
	S3   static.S3Config `yaml:"s3" envPrefix:"STATIC_S3_"`
}

type SessionConfig struct {
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
	Secret     string        `yaml:"secret" env:"SESSION_SECRET"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE"`
}

type LogConfig struct {
	Level               string `yaml:"level" env:"LOG_LEVEL"`
	Format              string `yaml:"format" env:"LOG_FORMAT"`
	logger.SentryConfig `yaml:",inline"`
}

// RateLimitConfig limits requests per client address. RPS zero disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			BufferSize:  1024,
			ReadTimeout: 5 * time.Second,
			Mode:        ModeSocket,
		},
		HTTP: HTTPConfig{
			Address:         ":8000",
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: storage.Config{
			Driver:        storage.DriverMemory,
			SweepSchedule: storage.DefaultSweepSchedule,
			PebblePath:    "data/storage",
		},
		Session: SessionConfig{
			CookieName: "MERACTSESSID",
			TTL:        time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(logger.FormatJSON),
		},
	}
}

// Load builds the configuration in layers: defaults, then the YAML file at
// path (skipped when path is empty), then .env files, then the process
// environment. A missing default .env is ignored; a missing named file is
// an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(ErrReadFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Join(ErrParseFile, err)
		}
	}

	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(ErrReadFile, err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Join(ErrReadFile, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrParseEnv, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		invalid("server.port %d out of range", c.Server.Port)
	}
	if c.Server.BufferSize <= 0 {
		invalid("server.buffer_size must be positive")
	}
	if c.Server.ReadTimeout < 0 {
		invalid("server.read_timeout must not be negative")
	}
	switch c.Server.Mode {
	case ModeSocket, ModeHTTP, ModeFastHTTP:
	default:
		invalid("server.mode %q is not one of socket, http, fasthttp", c.Server.Mode)
	}

	if c.Storage.TTL < 0 {
		invalid("storage.ttl must not be negative")
	}

	if c.HTTP.ShutdownTimeout <= 0 {
		invalid("http.shutdown_timeout must be positive")
	}

	switch c.Storage.Driver {
	case storage.DriverMemory, storage.DriverPebble:
	case storage.DriverRedis:
		if c.Storage.Redis.URL == "" {
			invalid("storage.redis.url is required for the redis driver")
		}
	case storage.DriverPostgres:
		if c.Storage.Postgres.ConnectionString == "" {
			invalid("storage.postgres.url is required for the postgres driver")
		}
	default:
		invalid("storage.driver %q is not one of memory, redis, postgres, pebble", c.Storage.Driver)
	}

	if c.Session.CookieName == "" {
		invalid("session.cookie_name is required")
	}
	if c.Session.TTL <= 0 {
		invalid("session.ttl must be positive")
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < 32 {
		invalid("session.secret must be at least 32 bytes")
	}

	if _, err := logger.ParseLevelStrict(c.Log.Level); err != nil {
		invalid("log.level %q", c.Log.Level)
	}
	switch logger.Format(c.Log.Format) {
	case logger.FormatJSON, logger.FormatText:
	default:
		invalid("log.format %q is not one of json, text", c.Log.Format)
	}

	if c.RateLimit.RPS < 0 {
		invalid("rate_limit.rps must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		invalid("rate_limit.burst must be at least 1 when rps is set")
	}

	return errors.Join(errs...)
}
