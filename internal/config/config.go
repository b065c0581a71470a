package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	CMS        CMSConfig
	Site       SiteConfig
	Revalidate RevalidateConfig
	Session    SessionConfig
	Database   DatabaseConfig
	Fallback   FallbackConfig
	S3         S3Config
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// CMSConfig holds the TYPO3 connection settings.
type CMSConfig struct {
	BaseURL   string
	TimeoutMS int
	// UseMockData serves the fallback dataset without contacting the CMS.
	UseMockData     bool
	CacheTTLSeconds int
	CacheMaxEntries int
}

// SiteConfig holds settings of the public site.
type SiteConfig struct {
	PublicBaseURL string
}

// RevalidateConfig holds the cache revalidation endpoint settings.
type RevalidateConfig struct {
	Secret        string
	RatePerMinute int
}

// SessionConfig holds the provisional login settings.
type SessionConfig struct {
	Store          string // "none", "memory" or "postgres"
	CookieName     string
	TTLMinutes     int
	ProtectedPaths []string
	// LoginPath is the absolute URL of the site's login page.
	LoginPath string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// FallbackConfig points at an optional override of the built-in fallback dataset.
type FallbackConfig struct {
	File string
}

// S3Config holds AWS S3 configuration for the fallback dataset.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string
}

// Load loads configuration from environment variables. Values from a .env file
// in the working directory are applied first without overriding the process
// environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CMS: CMSConfig{
			BaseURL:         getEnv("TYPO3_BASE_URL", ""),
			TimeoutMS:       getEnvAsInt("TYPO3_TIMEOUT_MS", 8000),
			UseMockData:     getEnvAsBool("USE_MOCK_DATA", false),
			CacheTTLSeconds: getEnvAsInt("CACHE_TTL_SECONDS", 60),
			CacheMaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 1000),
		},
		Site: SiteConfig{
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		},
		Revalidate: RevalidateConfig{
			Secret:        getEnv("REVALIDATION_SECRET", ""),
			RatePerMinute: getEnvAsInt("REVALIDATE_RATE_PER_MINUTE", 30),
		},
		Session: SessionConfig{
			Store:          getEnv("SESSION_STORE", "none"),
			CookieName:     getEnv("SESSION_COOKIE_NAME", "fahndung_session"),
			TTLMinutes:     getEnvAsInt("SESSION_TTL_MINUTES", 480),
			ProtectedPaths: getEnvAsList("PROTECTED_PATHS", []string{"/dashboard"}),
			LoginPath:      getEnv("LOGIN_PATH", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "fahndungsportal"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 1),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Fallback: FallbackConfig{
			File: getEnv("FALLBACK_FILE", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "eu-central-1"),
			Prefix:  getEnv("S3_PREFIX", "fallback/"),
		},
	}

	if cfg.Session.LoginPath == "" && cfg.Site.PublicBaseURL != "" {
		cfg.Session.LoginPath = strings.TrimRight(cfg.Site.PublicBaseURL, "/") + "/login"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := validateURL("TYPO3 base URL", c.CMS.BaseURL); err != nil {
		return err
	}

	if err := validateURL("public base URL", c.Site.PublicBaseURL); err != nil {
		return err
	}

	if c.CMS.TimeoutMS < 1 {
		return fmt.Errorf("CMS timeout must be at least 1ms")
	}

	if c.CMS.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}

	if c.Revalidate.RatePerMinute < 1 {
		return fmt.Errorf("revalidate rate must be at least 1 per minute")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	switch c.Session.Store {
	case "none", "memory":
	case "postgres":
		if err := c.Database.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid session store: %s (must be none, memory, or postgres)", c.Session.Store)
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	if c.Session.TTLMinutes < 1 {
		return fmt.Errorf("session TTL must be at least 1 minute")
	}

	// The login page belongs to the site, not to this service.
	if err := validateURL("login URL", c.Session.LoginPath); err != nil {
		return err
	}

	if c.CMS.CacheMaxEntries < 1 {
		return fmt.Errorf("cache max entries must be at least 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be a valid http(s) URL: %q", name, raw)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the per-request CMS timeout.
func (c *CMSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// CacheTTL returns how long CMS responses are cached.
func (c *CMSConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// TTL returns the session lifetime.
func (c *SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
// Besides strconv.ParseBool it accepts "yes"/"no" and "on"/"off".
func getEnvAsBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

// getEnvAsList retrieves a comma-separated environment variable or returns a default value.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
