// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Supported password hashing algorithms.
const (
	HashAlgoBcrypt   = "bcrypt"
	HashAlgoArgon2id = "argon2id"
)

// minJWTSecretLength is the minimum signing secret length for HS256.
const minJWTSecretLength = 32

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis). Empty means an in-process cache is used instead.
	RedisURL string `env:"REDIS_URL"`

	// Session tokens
	JWTSecret    string        `env:"JWT_SECRET,required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// Password hashing
	PasswordHashAlgo string        `env:"PASSWORD_HASH_ALGO" envDefault:"bcrypt"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`
	HashConcurrency  int           `env:"HASH_CONCURRENCY" envDefault:"0"`
	HashTimeout      time.Duration `env:"HASH_TIMEOUT" envDefault:"5s"`

	// Credential store
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Identity cache used by the session guard
	IdentityCacheTTL time.Duration `env:"IDENTITY_CACHE_TTL" envDefault:"1m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of browser origins allowed to send credentials
	// (e.g., "http://localhost:5173,https://app.moneytrail.dev")
	FrontendURL string `env:"FRONTEND_URL" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.FrontendURL == "" {
		return nil
	}

	origins := strings.Split(c.FrontendURL, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSuffix(strings.TrimSpace(origin), "/")
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// HashWorkers returns the number of concurrent password hashes allowed.
func (c *Config) HashWorkers() int {
	if c.HashConcurrency <= 0 {
		return runtime.NumCPU()
	}
	return c.HashConcurrency
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	switch c.PasswordHashAlgo {
	case HashAlgoBcrypt, HashAlgoArgon2id:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASH_ALGO %q is not supported", c.PasswordHashAlgo))
	}
	if c.HashTimeout <= 0 {
		errs = append(errs, errors.New("HASH_TIMEOUT must be positive"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
