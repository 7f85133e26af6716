package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is read once at process start and treated as immutable afterwards.
// There is no hot reload; changing any value requires a restart.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Argon2    Argon2Config
	RateLimit RateLimitConfig
	Usage     UsageConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	HTTPSEnabled bool
}

type DatabaseConfig struct {
	DSN string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret          string
	Issuer          string
	Audience        string
	Lifetime        time.Duration
	Leeway          time.Duration
	AllowCookieAuth bool
	ForceCookieAuth bool
	CookieName      string
	CookieSameSite  string
	CookieMaxAge    int
}

type Argon2Config struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// VerifyCacheTTL bounds how long a successful verification of the same
	// plaintext is remembered before the full hash is recomputed.
	VerifyCacheTTL time.Duration
}

type RateLimitConfig struct {
	CacheTTL time.Duration
	Window   time.Duration
}

type UsageConfig struct {
	FlushInterval time.Duration
}

// Load reads configuration from the environment. Call godotenv.Load first if
// a .env file should be honored.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("SERVER_ENVIRONMENT", "development"),
			HTTPSEnabled: getEnvBool("SERVER_HTTPS_ENABLED", false),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_DSN", "host=localhost user=postgres dbname=gateway sslmode=disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("CACHE_ENDPOINT", "localhost"),
			Port:     getEnv("CACHE_PORT", "6379"),
			Password: getEnv("CACHE_PASSWORD", ""),
			DB:       getEnvInt("CACHE_DB", 0),
		},
		JWT: JWTConfig{
			Secret:          secret,
			Issuer:          getEnv("JWT_ISSUER", "auth-gateway"),
			Audience:        getEnv("JWT_AUDIENCE", "auth-gateway-clients"),
			Lifetime:        getEnvDuration("JWT_LIFETIME", 24*time.Hour),
			Leeway:          getEnvDuration("JWT_LEEWAY", 5*time.Minute),
			AllowCookieAuth: getEnvBool("JWT_ALLOW_COOKIE_AUTH", false),
			ForceCookieAuth: getEnvBool("JWT_FORCE_COOKIE_AUTH", false),
			CookieName:      getEnv("JWT_COOKIE_NAME", "auth_token"),
			CookieSameSite:  getEnv("JWT_COOKIE_SAMESITE", "Lax"),
			CookieMaxAge:    getEnvInt("JWT_COOKIE_MAX_AGE", 604800),
		},
		Argon2: Argon2Config{
			MemoryKiB:      uint32(getEnvInt("ARGON2_MEMORY_KIB", 15360)),
			Iterations:     uint32(getEnvInt("ARGON2_ITERATIONS", 2)),
			Parallelism:    uint8(getEnvInt("ARGON2_PARALLELISM", 1)),
			SaltLength:     16,
			KeyLength:      32,
			VerifyCacheTTL: getEnvDuration("VERIFY_CACHE_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			CacheTTL: getEnvDuration("RATE_LIMIT_CACHE_TTL", 5*time.Minute),
			Window:   24 * time.Hour,
		},
		Usage: UsageConfig{
			FlushInterval: getEnvDuration("USAGE_FLUSH_INTERVAL", time.Minute),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
