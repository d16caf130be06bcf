// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. A .env file in the working directory is honoured but never
// overrides variables already set. Sensible defaults are provided for
// development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// minSecretLength is the minimum accepted SESSION_SECRET length.
const minSecretLength = 32

// devSessionSecret lets dev and test run without a .env.
const devSessionSecret = "dev-session-secret-do-not-use-in-production"

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "dev", "test", "staging" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// APIVersion is the path prefix for versioned routes (default: "/api/v1").
	APIVersion string

	// AppName identifies this service in logs and token issuer claims.
	AppName string

	// BaseURL is the public-facing URL, reported at startup.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Session holds bearer-session settings.
	Session SessionConfig

	// Mail holds outbound SMTP settings.
	Mail MailConfig

	// Media holds media host settings.
	Media MediaConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "cloudsystem").
	User string

	// Password is the MariaDB password (default: "cloudsystem").
	Password string

	// Name is the database name (default: "cloudsystem").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string

	// Password overrides any password in URL. Required in staging and production.
	Password string
}

// SessionConfig holds bearer-session settings.
type SessionConfig struct {
	// Secret keys both store-key derivation and token signing. At least
	// 32 characters.
	Secret string

	// TTL is the sliding inactivity timeout, read from SESSION_TTL in seconds.
	TTL time.Duration

	// MaxAge optionally caps a token's absolute lifetime. Zero disables it.
	MaxAge time.Duration
}

// MailConfig holds outbound SMTP settings.
type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	Encryption string // "starttls", "ssl", or "none".
}

// MediaConfig holds media host settings.
type MediaConfig struct {
	// CloudinaryURL is cloudinary://<key>:<secret>@<cloud>.
	CloudinaryURL string

	// MaxUploadSize is the maximum upload file size in bytes.
	MaxUploadSize int64

	// Folder is the root folder uploads are placed under.
	Folder string
}

// Load reads configuration from environment variables with sensible defaults.
// All missing or invalid variables are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{
		Env:            strings.ToLower(getEnv("ENV", "dev")),
		Port:           getEnvInt("PORT", 8080),
		APIVersion:     getEnv("API_VERSION", "/api/v1"),
		AppName:        getEnv("APP_NAME", "cloud-system-app"),
		BaseURL:        getEnv("BASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "cloudsystem"),
			Password:        getEnv("DB_PASSWORD", "cloudsystem"),
			Name:            getEnv("DB_NAME", "cloudsystem"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},

		Session: SessionConfig{
			Secret: strings.TrimSpace(getEnv("SESSION_SECRET", "")),
			TTL:    time.Duration(getEnvInt("SESSION_TTL", 86400)) * time.Second,
			MaxAge: getEnvDuration("SESSION_MAX_AGE", 0),
		},

		Mail: MailConfig{
			Host:       getEnv("MAIL_HOST", "smtp.gmail.com"),
			Port:       getEnvInt("MAIL_PORT", 587),
			Username:   getEnv("MAIL_USER", ""),
			Password:   getEnv("MAIL_PASS", ""),
			From:       getEnv("MAIL_FROM", ""),
			FromName:   getEnv("MAIL_FROM_NAME", "Cloud System"),
			Encryption: strings.ToLower(getEnv("MAIL_ENCRYPTION", "starttls")),
		},

		Media: MediaConfig{
			CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
			MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			Folder:        getEnv("UPLOAD_FOLDER", "upload-files"),
		},
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}
	if cfg.Session.Secret == "" && !cfg.IsProduction() {
		cfg.Session.Secret = devSessionSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks every constraint and joins all failures into one error.
func (c *Config) validate() error {
	var errs []error

	switch c.Env {
	case "dev", "test", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of dev, test, staging, production (got %q)", c.Env))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535"))
	}
	if !strings.HasPrefix(c.APIVersion, "/") {
		errs = append(errs, fmt.Errorf("API_VERSION must start with /"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be a positive number of seconds"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, fmt.Errorf("SESSION_SECRET is required"))
	} else if len(c.Session.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength))
	}
	if c.Session.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("SESSION_MAX_AGE must not be negative"))
	}
	if u, err := url.Parse(c.Redis.URL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		errs = append(errs, fmt.Errorf("REDIS_URL must be a redis:// or rediss:// URL"))
	}
	if c.Media.CloudinaryURL != "" && !strings.HasPrefix(c.Media.CloudinaryURL, "cloudinary://") {
		errs = append(errs, fmt.Errorf("CLOUDINARY_URL must be a cloudinary:// URL"))
	}
	switch c.Mail.Encryption {
	case "starttls", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("MAIL_ENCRYPTION must be one of starttls, ssl, none"))
	}

	if c.IsProduction() {
		if c.Redis.Password == "" {
			errs = append(errs, fmt.Errorf("REDIS_PASSWORD is required in %s", c.Env))
		}
		if c.Media.CloudinaryURL == "" {
			errs = append(errs, fmt.Errorf("CLOUDINARY_URL is required in %s", c.Env))
		}
		if c.Mail.Username == "" || c.Mail.Password == "" {
			errs = append(errs, fmt.Errorf("MAIL_USER and MAIL_PASS are required in %s", c.Env))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("missing environment variables: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "development"
}

// IsProduction returns true for staging and production, which enforce
// real secrets and credentials.
func (c *Config) IsProduction() bool {
	return c.Env == "staging" || c.Env == "production"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
