package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const devSecret = "development-secret-do-not-use-in-production"

// Config holds all configuration for the service
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Loans     LoanConfig
	Settings  Settings
}

type AppConfig struct {
	Environment string
	Port        string
	Version     string
}

// DatabaseConfig describes the datastore. DSN wins over the individual fields.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	InviteTTL time.Duration
}

// TelemetryConfig enables tracing when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
}

type LoanConfig struct {
	Term                time.Duration
	DefaultInterestRate decimal.Decimal
}

// Settings is the optional YAML file named by --config.
type Settings struct {
	Categories      []string        `yaml:"categories"`
	DefaultFeatures map[string]bool `yaml:"default_features"`
}

// DefaultCategories seeds the category table when the settings file has none.
var DefaultCategories = []string{
	"Gold Jewelry",
	"Silver Coins",
	"Gold Bar",
	"Electronics",
	"Watches",
	"Others",
}

// Load reads .env (if present), the environment and the optional settings file.
func Load(settingsPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist in production
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	rate, err := decimal.NewFromString(getEnv("DEFAULT_INTEREST_RATE", "3.5"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_INTEREST_RATE: %w", err)
	}

	env := &envReader{}
	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("HTTP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", ""),
			User:            getEnv("DB_USER", "pawnshop"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "pawnshop"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    env.Int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.Int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: env.Duration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  env.Duration("JWT_TTL", 12*time.Hour),
			InviteTTL: env.Duration("INVITE_TTL", 72*time.Hour),
		},
		Telemetry: TelemetryConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "pawnshop"),
		},
		Loans: LoanConfig{
			Term:                time.Duration(env.Int("TICKET_TERM_DAYS", 30)) * 24 * time.Hour,
			DefaultInterestRate: rate,
		},
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if settingsPath != "" {
		if err := cfg.Settings.load(settingsPath); err != nil {
			return nil, err
		}
	}
	if len(cfg.Settings.Categories) == 0 {
		cfg.Settings.Categories = DefaultCategories
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite, mysql or postgres, got %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" && c.App.Environment == "development" {
		c.Auth.JWTSecret = devSecret
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Loans.Term <= 0 {
		return fmt.Errorf("TICKET_TERM_DAYS must be positive")
	}
	if c.Loans.DefaultInterestRate.IsNegative() {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must not be negative")
	}
	return nil
}

func (s *Settings) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return nil
}

// GetDSN returns the connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, orDefault(c.Port, "3306"), c.DBName)
	case "postgres":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, orDefault(c.Port, "5432"), c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.DBName + ".db?_foreign_keys=1"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// envReader parses typed variables and keeps every malformed one.
type envReader struct {
	errs []error
}

func (r *envReader) Int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer, got %q", key, raw))
		return fallback
	}
	return value
}

func (r *envReader) Duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a duration such as 12h, got %q", key, raw))
		return fallback
	}
	return value
}
