package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	OAuth    OAuthConfig
}

type DatabaseConfig struct {
	URL               string // DATABASE_URL, takes precedence over the discrete settings
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port                  string
	Env                   string
	LogLevel              string
	AllowedOrigins        []string
	TrustForwardedHeaders bool
	TrustedProxies        []string
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
}

type AuthConfig struct {
	SecretKey             string
	SessionExpiry         time.Duration
	SecureCookies         bool
	RegistrationEnabled   bool
	LoginMaxAttempts      int
	LoginLockoutDuration  time.Duration
	GuardSweepInterval    time.Duration
	AuthRequestsPerMinute int
}

type OAuthConfig struct {
	Enabled        bool
	GitHubClientID string
	GoogleClientID string
}

// Providers lists the OAuth providers that have a client id configured
func (c OAuthConfig) Providers() []string {
	providers := []string{}
	if !c.Enabled {
		return providers
	}
	if c.GitHubClientID != "" {
		providers = append(providers, "github")
	}
	if c.GoogleClientID != "" {
		providers = append(providers, "google")
	}
	return providers
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	secret := getEnv("SECRET_KEY", "")
	if secret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:                  getEnv("PORT", "8000"),
			Env:                   env,
			LogLevel:              getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:        parseAllowedOrigins(env),
			TrustForwardedHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", true),
			TrustedProxies:        splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:           getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:          getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:           getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			SecretKey:             secret,
			SessionExpiry:         getEnvAsDuration("SESSION_EXPIRY", 7*24*time.Hour),
			SecureCookies:         getEnvAsBool("SECURE_COOKIES", false),
			RegistrationEnabled:   getEnvAsBool("REGISTRATION_ENABLED", true),
			LoginMaxAttempts:      getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginLockoutDuration:  getEnvAsDuration("LOGIN_LOCKOUT_DURATION", 15*time.Minute),
			GuardSweepInterval:    getEnvAsDuration("GUARD_SWEEP_INTERVAL", 5*time.Minute),
			AuthRequestsPerMinute: getEnvAsInt("AUTH_REQUESTS_PER_MINUTE", 20),
		},
		OAuth: OAuthConfig{
			Enabled:        getEnvAsBool("OAUTH_ENABLED", false),
			GitHubClientID: getEnv("GITHUB_CLIENT_ID", ""),
			GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}

	if err := validateSecretKey(secret, env); err != nil {
		return nil, err
	}

	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for commands that do not serve HTTP
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabaseConfig()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:               getEnv("DATABASE_URL", ""),
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "flashcard"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "flashcard"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

func (c *DatabaseConfig) validate() error {
	if c.URL == "" && c.Password == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required")
	}
	return nil
}

func (c *AuthConfig) validate() error {
	if c.LoginMaxAttempts <= 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive (got %d)", c.LoginMaxAttempts)
	}
	if c.LoginLockoutDuration <= 0 {
		return fmt.Errorf("LOGIN_LOCKOUT_DURATION must be positive (got %s)", c.LoginLockoutDuration)
	}
	if c.GuardSweepInterval <= 0 {
		return fmt.Errorf("GUARD_SWEEP_INTERVAL must be positive (got %s)", c.GuardSweepInterval)
	}
	if c.SessionExpiry <= 0 {
		return fmt.Errorf("SESSION_EXPIRY must be positive (got %s)", c.SessionExpiry)
	}
	return nil
}

// validateSecretKey enforces minimum security standards for the token signing secret
func validateSecretKey(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits for HS256
	}

	if len(secret) < minLength {
		return fmt.Errorf("SECRET_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	if strings.HasPrefix(strings.ToLower(secret), "your-secret-key") {
		return fmt.Errorf("SECRET_KEY still has the placeholder value")
	}

	return nil
}

// DSN returns the connection string for pgx and goose
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info
func (c *ServerConfig) SlogLevel() slog.Level {
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

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 {
		return origins
	}
	if env == "production" {
		return []string{}
	}

	// Development: Vite dev server and preview
	return []string{
		"http://localhost:5173",
		"http://localhost:4173",
		"http://localhost:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:4173",
		"http://127.0.0.1:3000",
	}
}
