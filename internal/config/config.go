package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// DataSourcePostgres selects the Postgres catalog as the dataset source.
const DataSourcePostgres = "postgres"

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	// CORSHosts are console hosts allowed in addition to local development.
	CORSHosts []string

	// DataSource is a URL (file://, http(s)://, s3://) or "postgres".
	DataSource       string
	SimulatedLatency time.Duration
	FetchTimeout     time.Duration

	SessionStore string
	SessionTTL   time.Duration

	DB     DatabaseConfig
	Redis  RedisConfig
	S3     S3Config
	Auth   AuthConfig
	Worker WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// S3Config contains the region, endpoint and credentials used by the S3 dataset source.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// AuthConfig switches login from placeholder mode to operator credential mode
// when both fields are set.
type AuthConfig struct {
	OperatorEmail        string
	OperatorPasswordHash string
	MaxFailedLogins      int
	FailedLoginWindow    time.Duration
}

// CredentialMode reports whether logins are checked against the operator account.
func (a AuthConfig) CredentialMode() bool {
	return a.OperatorEmail != "" && a.OperatorPasswordHash != ""
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	SessionSweepInterval time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Missing .env is fine: production relies on real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSHosts = splitList(getEnv("CORS_HOSTS", ""))

	// Dataset
	cfg.DataSource = getEnv("DATA_SOURCE", "file://fixtures/data.json")
	cfg.SessionStore = strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// S3
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "ap-southeast-3"),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	// Auth
	cfg.Auth = AuthConfig{
		OperatorEmail:        getEnv("AUTH_OPERATOR_EMAIL", ""),
		OperatorPasswordHash: getEnv("AUTH_OPERATOR_PASSWORD_HASH", ""),
		MaxFailedLogins:      getEnvInt("AUTH_MAX_FAILED_LOGINS", 5),
	}

	// Durations
	var err error
	if cfg.SimulatedLatency, err = parseDurationEnv("SIMULATED_LATENCY", "500ms"); err != nil {
		return nil, fmt.Errorf("invalid SIMULATED_LATENCY: %w", err)
	}
	if cfg.FetchTimeout, err = parseDurationEnv("FETCH_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", "12h"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.Auth.FailedLoginWindow, err = parseDurationEnv("AUTH_FAILED_LOGIN_WINDOW", "1m"); err != nil {
		return nil, fmt.Errorf("invalid AUTH_FAILED_LOGIN_WINDOW: %w", err)
	}
	if cfg.Worker.SessionSweepInterval, err = parseDurationEnv("SESSION_SWEEP_INTERVAL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for session tokens")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be greater than zero")
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.SessionStore)
	}
	if c.DataSource == DataSourcePostgres {
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	}
	if (c.Auth.OperatorEmail == "") != (c.Auth.OperatorPasswordHash == "") {
		return errors.New("AUTH_OPERATOR_EMAIL and AUTH_OPERATOR_PASSWORD_HASH must be set together")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// splitList splits a comma separated value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
