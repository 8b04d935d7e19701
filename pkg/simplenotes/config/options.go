package config

import "time"

// WithPort sets the HTTP port
func WithPort(port string) Option {
	return func(c *Config) error {
		c.Port = port
		return nil
	}
}

// WithDatabase sets the database URL ("memory" or a postgres URL)
func WithDatabase(url string) Option {
	return func(c *Config) error {
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *Config) error {
		c.DBSchema = schema
		return nil
	}
}

// WithRedis enables the public tree cache
func WithRedis(url string, ttl time.Duration) Option {
	return func(c *Config) error {
		c.RedisURL = url
		if ttl > 0 {
			c.PublicCacheTTL = ttl
		}
		return nil
	}
}

// WithJWTSecret sets the bearer token secret
func WithJWTSecret(secret string) Option {
	return func(c *Config) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithVersioning sets the auto-version interval and default retention limit
func WithVersioning(interval time.Duration, retention int) Option {
	return func(c *Config) error {
		c.AutoVersionInterval = interval
		c.DefaultRetentionLimit = retention
		return nil
	}
}

// WithLogLevel sets the minimum log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.LogLevel = level
		return nil
	}
}
