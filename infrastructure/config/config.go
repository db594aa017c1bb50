package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/authgreet/authgreet/domain/valueobject"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	EnvProduction = "production"
)

type Config struct {
	ServerHost  string
	ServerPort  string
	Environment string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	JWTIssuer          string

	BcryptPepper string
	BcryptCost   int

	CredentialStore string
	DatabaseURL     string
	RedisURL        string

	CORSAllowedOrigins []string
	SessionIDHeader    string

	LogLevel  string
	LogFormat string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

var (
	ErrMissingAccessSecret  = errors.New("ACCESS_JWT_SECRET is required")
	ErrMissingRefreshSecret = errors.New("REFRESH_JWT_SECRET is required")
	ErrSameSecrets          = errors.New("ACCESS_JWT_SECRET and REFRESH_JWT_SECRET must differ")
	ErrMissingPepper        = errors.New("BCRYPT_PEPPER is required")
	ErrPepperTooLong        = fmt.Errorf("BCRYPT_PEPPER must be at most %d bytes", valueobject.MaxPepperLength)
	ErrInvalidTokenTTL      = errors.New("invalid token TTL format")
	ErrInvalidBcryptCost    = errors.New("BCRYPT_SALT_ROUNDS must be an integer between 4 and 31")
	ErrUnknownStore         = errors.New("CREDENTIAL_STORE must be one of memory, postgres, redis")
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required when CREDENTIAL_STORE=postgres")
	ErrMissingRedisURL      = errors.New("REDIS_URL is required when CREDENTIAL_STORE=redis")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:         getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:         getEnvOrDefault("SERVER_PORT", "3000"),
		Environment:        getEnvOrDefault("ENV", "development"),
		AccessTokenSecret:  os.Getenv("ACCESS_JWT_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_JWT_SECRET"),
		JWTIssuer:          getEnvOrDefault("JWT_ISSUER", "authgreet"),
		BcryptPepper:       os.Getenv("BCRYPT_PEPPER"),
		CredentialStore:    strings.ToLower(getEnvOrDefault("CREDENTIAL_STORE", StoreMemory)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		CORSAllowedOrigins: parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		SessionIDHeader:    getEnvOrDefault("SESSION_ID_HEADER", "X-Session-ID"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
		ReadTimeout:        getEnvOrDefaultDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvOrDefaultDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:        getEnvOrDefaultDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:    getEnvOrDefaultDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	accessTTL, err := parseTokenTTL(getEnvOrDefault("ACCESS_JWT_EXPIRES_IN", "5m"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.AccessTokenTTL = accessTTL

	refreshTTL, err := parseTokenTTL(getEnvOrDefault("REFRESH_JWT_EXPIRES_IN", "720h"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RefreshTokenTTL = refreshTTL

	cost, err := strconv.Atoi(getEnvOrDefault("BCRYPT_SALT_ROUNDS", "10"))
	if err != nil {
		return nil, ErrInvalidBcryptCost
	}
	cfg.BcryptCost = cost

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that must hold before any component is built.
func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return ErrMissingAccessSecret
	}
	if c.RefreshTokenSecret == "" {
		return ErrMissingRefreshSecret
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return ErrSameSecrets
	}
	if c.BcryptPepper == "" {
		return ErrMissingPepper
	}
	if len(c.BcryptPepper) > valueobject.MaxPepperLength {
		return ErrPepperTooLong
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return ErrInvalidBcryptCost
	}

	switch c.CredentialStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownStore, c.CredentialStore)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := parseTokenTTL(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

// parseTokenTTL accepts plain seconds ("900") or a Go duration ("15m").
func parseTokenTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func parseAllowedOrigins(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
