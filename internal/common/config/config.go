package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
	commonerrors "github.com/AlibekovAA/taskflow/backend/internal/common/errors"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type AuthConfig struct {
	HTTPPort         string
	Environment      string
	DatabaseURL      string
	RedisURL         string
	ClientURL        string
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RefreshStore     string
	RefreshRotation  bool
	RunMigrations    bool
	RequestTimeout   time.Duration
	StoreTimeout     time.Duration
	CleanupInterval  time.Duration

	CircuitBreakerThreshold int
	CircuitBreakerReset     time.Duration
}

func (c AuthConfig) IsProduction() bool {
	return c.Environment == constants.ProductionEnv
}

// AllowedOrigins lists the browser origins that may send credentialed requests.
func (c AuthConfig) AllowedOrigins() []string {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if c.ClientURL != "" {
		origins = append(origins, c.ClientURL)
	}
	return origins
}

func LoadAuthConfig() (AuthConfig, error) {
	// .env is optional; real deployments pass the environment directly.
	_ = godotenv.Load()

	accessSecret, err := mustEnv("JWT_ACCESS_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}
	refreshSecret, err := mustEnv("JWT_REFRESH_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}
	if err := validateJWTSecrets(accessSecret, refreshSecret); err != nil {
		return AuthConfig{}, err
	}

	store := strings.ToLower(getEnv("REFRESH_STORE", StorePostgres))
	switch store {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return AuthConfig{}, commonerrors.ErrInvalidConfig.WithCause(fmt.Errorf("REFRESH_STORE=%q", store))
	}

	// The user store always lives in Postgres, whatever holds refresh records.
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return AuthConfig{}, err
	}

	redisURL := getEnv("REDIS_URL", "")
	if store == StoreRedis && redisURL == "" {
		return AuthConfig{}, commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("REDIS_URL"))
	}

	return AuthConfig{
		HTTPPort:                getEnv("AUTH_HTTP_PORT", constants.DefaultAuthHTTPPort),
		Environment:             getEnv("APP_ENV", constants.DefaultEnvironment),
		DatabaseURL:             databaseURL,
		RedisURL:                redisURL,
		ClientURL:               getEnv("CLIENT_URL", ""),
		JWTAccessSecret:         accessSecret,
		JWTRefreshSecret:        refreshSecret,
		AccessTokenTTL:          getDurationEnv("ACCESS_TOKEN_TTL", constants.DefaultAccessTokenTTL),
		RefreshTokenTTL:         getDurationEnv("REFRESH_TOKEN_TTL", constants.DefaultRefreshTokenTTL),
		RefreshStore:            store,
		RefreshRotation:         getBoolEnv("REFRESH_ROTATION", false),
		RunMigrations:           getBoolEnv("DB_MIGRATE", true),
		RequestTimeout:          getDurationEnv("AUTH_REQUEST_TIMEOUT", constants.DefaultAuthRequestTimeout),
		StoreTimeout:            getDurationEnv("STORE_TIMEOUT", constants.DefaultStoreTimeout),
		CleanupInterval:         getDurationEnv("CLEANUP_INTERVAL", constants.DefaultCleanupInterval),
		CircuitBreakerThreshold: getIntEnv("CIRCUIT_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold),
		CircuitBreakerReset:     getDurationEnv("CIRCUIT_BREAKER_RESET", constants.DefaultCircuitBreakerReset),
	}, nil
}

func validateJWTSecrets(access, refresh string) error {
	if len(access) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("JWT_ACCESS_SECRET: got %d bytes", len(access)))
	}
	if len(refresh) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("JWT_REFRESH_SECRET: got %d bytes", len(refresh)))
	}
	if access == refresh {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("access and refresh secrets are identical"))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
