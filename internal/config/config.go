package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret is the documented insecure fallback for local development.
// Production deployments must set JWT_SECRET; main refuses to boot otherwise.
const DevJWTSecret = "eventgate-dev-secret-key"

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	// optional admin seed, skipped when empty
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// optional redis-backed cache; in-process cache is used when empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	OTLPEndpoint   string
	AllowedOrigins []string
}

func Load() Config {
	// best effort; real env vars win over .env
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := buildDBURL()

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		JWTSecret:    getEnv("JWT_SECRET", DevJWTSecret),
		JWTAccessTTL: 24 * time.Hour,

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}
}

// UsingDevSecret reports whether the process still runs on the insecure fallback.
func (c Config) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "eventgate")
	pass := getEnv("DB_PASSWORD", "eventgate")
	name := getEnv("DB_NAME", "eventgate")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
