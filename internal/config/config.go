package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"water-savings-platform/pkg/database"
)

// Config is the full runtime configuration, resolved once at startup
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Webhook  WebhookConfig
	Catalog  CatalogConfig
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Postgres converts the settings into the connection config pkg/database expects
func (d DatabaseConfig) Postgres() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// WebhookConfig controls outbound webhook delivery
type WebhookConfig struct {
	Timeout     time.Duration
	MaxLogBody  int
	UserAgent   string
	MaxInFlight int
}

// CatalogConfig points at the YAML seed catalog
type CatalogConfig struct {
	Path string
}

// LoadConfig reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to resolve variables
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	r := &reader{lookup: lookup}

	cfg := &Config{
		Server: ServerConfig{
			Host:            r.str("SERVER_HOST", "0.0.0.0"),
			Port:            r.int("SERVER_PORT", 8080),
			ReadTimeout:     r.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    r.duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     r.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: r.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            r.str("DB_HOST", "localhost"),
			Port:            r.int("DB_PORT", 5432),
			User:            r.str("DB_USER", "postgres"),
			Password:        r.str("DB_PASSWORD", ""),
			Database:        r.str("DB_NAME", "water_savings"),
			SSLMode:         r.str("DB_SSLMODE", "disable"),
			MaxOpenConns:    r.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    r.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: r.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(r.str("LOG_LEVEL", "info")),
		},
		Webhook: WebhookConfig{
			Timeout:     r.duration("WEBHOOK_TIMEOUT", 10*time.Second),
			MaxLogBody:  r.int("WEBHOOK_MAX_LOG_BODY", 4096),
			UserAgent:   r.str("WEBHOOK_USER_AGENT", "water-savings-platform/1.0"),
			MaxInFlight: r.int("WEBHOOK_MAX_IN_FLIGHT", 16),
		},
		Catalog: CatalogConfig{
			Path: r.str("CATALOG_PATH", ""),
		},
	}

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT out of range: %d", c.Database.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.Database.MaxOpenConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_OPEN_CONNS must be positive: %d", c.Database.MaxOpenConns))
	}
	if c.Database.MaxIdleConns < 0 || c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, fmt.Errorf("DB_MAX_IDLE_CONNS must be between 0 and DB_MAX_OPEN_CONNS: %d", c.Database.MaxIdleConns))
	}
	if c.Webhook.Timeout <= 0 {
		errs = append(errs, errors.New("WEBHOOK_TIMEOUT must be positive"))
	}
	if c.Webhook.MaxInFlight <= 0 {
		errs = append(errs, errors.New("WEBHOOK_MAX_IN_FLIGHT must be positive"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL unknown: %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
