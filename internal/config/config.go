// Package config loads service configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MinProductionSecretLength is the shortest JWT secret accepted in production
const MinProductionSecretLength = 32

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseDriver string `env:"DATABASE_DRIVER,default=postgres"`
	DatabaseURL    string `env:"DATABASE_URL,required"`

	// HTTP
	APIPort        int  `env:"API_PORT,default=8080"`
	MetricsEnabled bool `env:"METRICS_ENABLED,default=true"`

	// Inbound SMTP gateway
	SMTP SMTPConfig

	// Identity tokens
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=12h"`

	// Logging
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Security
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	AppEnv         string `env:"APP_ENV,default=development"`

	// Rate Limiting
	RateLimitRequests float64 `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitBurst    int     `env:"RATE_LIMIT_BURST,default=20"`
}

// SMTPConfig configures the inbound mail gateway
type SMTPConfig struct {
	Enabled        bool          `env:"SMTP_ENABLED,default=false"`
	Addr           string        `env:"SMTP_ADDR,default=:2525"`
	Hostname       string        `env:"SMTP_DOMAIN,default=localhost"`
	Domains        []string      `env:"SMTP_DOMAINS"`
	MaxMessageSize int64         `env:"SMTP_MAX_MESSAGE_SIZE,default=26214400"`
	MaxRecipients  int           `env:"SMTP_MAX_RECIPIENTS,default=100"`
	ReadTimeout    time.Duration `env:"SMTP_READ_TIMEOUT,default=60s"`
	WriteTimeout   time.Duration `env:"SMTP_WRITE_TIMEOUT,default=60s"`
	AllowInsecure  bool          `env:"SMTP_ALLOW_INSECURE,default=false"`
	TLSCertFile    string        `env:"SMTP_TLS_CERT"`
	TLSKeyFile     string        `env:"SMTP_TLS_KEY"`
}

// Load reads configuration from a .env file, if present, and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, cfg, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	for i, d := range cfg.SMTP.Domains {
		cfg.SMTP.Domains[i] = strings.ToLower(strings.TrimSpace(d))
	}
	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	if err := c.Validate(); err != nil {
		return err
	}

	// Production-specific validation
	if c.IsProduction() {
		if err := c.ValidateProduction(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverSQLite {
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_BURST must be positive")
	}
	if c.SMTP.Enabled {
		if c.SMTP.Addr == "" {
			return fmt.Errorf("SMTP_ADDR cannot be empty when SMTP is enabled")
		}
		if len(c.SMTP.Domains) == 0 {
			return fmt.Errorf("SMTP_DOMAINS is required when SMTP is enabled")
		}
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if len(c.JWTSecret) < MinProductionSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", MinProductionSecretLength)
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if c.DatabaseDriver == DriverSQLite {
		return fmt.Errorf("sqlite is not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.SMTP.Enabled && c.SMTP.AllowInsecure {
		return fmt.Errorf("SMTP_ALLOW_INSECURE must be false in production")
	}

	return nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Origins returns the allowed origins as a list
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("database_driver", c.DatabaseDriver),
		slog.Int("api_port", c.APIPort),
		slog.Bool("smtp_enabled", c.SMTP.Enabled),
		slog.String("smtp_addr", c.SMTP.Addr),
		slog.Any("smtp_domains", c.SMTP.Domains),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("jwt_secret_set", c.JWTSecret != ""),
		slog.Duration("token_ttl", c.TokenTTL),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.Bool("metrics_enabled", c.MetricsEnabled),
	)
}
