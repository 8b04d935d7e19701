package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-notes/pkg/simplenotes"
	rediscache "github.com/tendant/simple-notes/pkg/simplenotes/cache/redis"
	"github.com/tendant/simple-notes/pkg/simplenotes/repo/memory"
	repopg "github.com/tendant/simple-notes/pkg/simplenotes/repo/postgres"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Port:                  "8080",
		Environment:           "development",
		DatabaseURL:           "memory",
		DBSchema:              "notes",
		RunMigrations:         true,
		PublicCacheTTL:        rediscache.DefaultTTL,
		AutoVersionInterval:   simplenotes.DefaultAutoVersionInterval,
		DefaultRetentionLimit: simplenotes.DefaultVersionRetentionLimit,
		PublicIDFallback:      true,
		LogLevel:              "info",
	}
}

// Config represents configuration for the simple-notes service. The env
// tags are read by WithEnv.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration
	DatabaseURL   string `env:"DATABASE_URL" env-default:"memory"` // "memory" or postgres://...
	DBSchema      string `env:"DB_SCHEMA" env-default:"notes"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" env-default:"true"`

	// Public tree cache; an empty URL disables it
	RedisURL       string        `env:"REDIS_URL"`
	PublicCacheTTL time.Duration `env:"PUBLIC_CACHE_TTL" env-default:"10m"`

	// HS256 secret for bearer tokens
	JWTSecret string `env:"JWT_SECRET"`

	// Service behaviour
	AutoVersionInterval   time.Duration `env:"AUTO_VERSION_INTERVAL" env-default:"2m"`
	DefaultRetentionLimit int           `env:"DEFAULT_RETENTION_LIMIT" env-default:"99"`
	PublicIDFallback      bool          `env:"PUBLIC_ID_FALLBACK" env-default:"true"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// WithEnv replaces the configuration with values read from the environment,
// falling back to the env-default tags.
func WithEnv() Option {
	return func(c *Config) error {
		var cfg Config
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		*c = cfg
		return nil
	}
}

// DatabaseType returns "memory" or "postgres".
func (c *Config) DatabaseType() string {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return "memory"
	}
	return "postgres"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType() == "postgres" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}

	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		return fmt.Errorf("unsupported REDIS_URL format: %s", c.RedisURL)
	}

	if c.DefaultRetentionLimit < 0 {
		return errors.New("default_retention_limit must be non-negative")
	}
	if c.AutoVersionInterval < 0 {
		return errors.New("auto_version_interval must be non-negative")
	}
	if c.PublicCacheTTL < 0 {
		return errors.New("public_cache_ttl must be non-negative")
	}

	if _, err := c.level(); err != nil {
		return err
	}

	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}

	return nil
}

// ValidateServer checks what the HTTP server needs on top of Validate. Bearer
// tokens are verified with JWTSecret, so it must be set in every environment.
func (c *Config) ValidateServer() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("jwt_secret is required to serve the API")
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger builds the process logger: JSON in production, text elsewhere.
func (c *Config) Logger() *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// Runtime bundles the built service with the resources it holds.
type Runtime struct {
	Service simplenotes.Service
	Store   simplenotes.Store
	Logger  *slog.Logger

	closers []func()
}

// Close releases the database pool and the cache connection.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// BuildService creates a Service instance from the configuration
func (c *Config) BuildService(ctx context.Context) (*Runtime, error) {
	rt := &Runtime{Logger: c.Logger()}

	store, err := c.buildStore(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	rt.Store = store

	options := []simplenotes.Option{
		simplenotes.WithStore(store),
		simplenotes.WithLogger(rt.Logger),
		simplenotes.WithEventSink(simplenotes.NewLoggingEventSink(rt.Logger)),
		simplenotes.WithAutoVersionInterval(c.AutoVersionInterval),
		simplenotes.WithDefaultRetentionLimit(c.DefaultRetentionLimit),
		simplenotes.WithPublicIDFallback(c.PublicIDFallback),
	}

	if c.RedisURL != "" {
		cache, err := rediscache.New(c.RedisURL, c.PublicCacheTTL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to build public cache: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = cache.Close() })
		options = append(options, simplenotes.WithPublicCache(cache))
	}

	svc, err := simplenotes.New(options...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// buildStore creates a Store based on the configuration
func (c *Config) buildStore(ctx context.Context, rt *Runtime) (simplenotes.Store, error) {
	switch c.DatabaseType() {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := c.newPool(ctx)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)

		if c.RunMigrations {
			if c.DBSchema != "" {
				if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{c.DBSchema}.Sanitize()); err != nil {
					return nil, fmt.Errorf("create schema: %w", err)
				}
			}
			if err := repopg.ApplyMigrations(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType())
	}
}

func (c *Config) newPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	// Optionally set search_path for the connection
	if schema := c.DBSchema; schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}
