package config

import (
	"os"
	"time"
)

type Config struct {
	ServerPort     string
	RedisAddr      string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	ClockSkew      time.Duration
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration
	Environment    string
	LimiterBackend string // "memory" or "redis"
	FailStrategy   string // initial counter-store failure strategy
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:      getEnv("JWT_SECRET", "secret-key"),
		JWTIssuer:      getEnv("JWT_ISSUER", "policyfence"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "policyfence-api"),
		ClockSkew:      getDuration("JWT_CLOCK_SKEW", 5*time.Minute),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:     getDuration("REFRESH_TOKEN_TTL", 24*time.Hour),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LimiterBackend: getEnv("LIMITER_BACKEND", "memory"),
		FailStrategy:   getEnv("LIMITER_FAIL_STRATEGY", "fail_open"),
	}
}

// IsProduction gates whitelist enforcement in the IP filter.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
