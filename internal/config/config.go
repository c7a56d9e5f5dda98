package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBDSN         string
	LogFile       string
	LogLevel      string
	TemplatesDir  string
	StaticDir     string
	TenantsFile   string
	DefaultTenant string

	SessionBackend string // sql|redis
	RedisAddr      string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	QueueRefreshInterval time.Duration
	DemoLogin            bool
}

func Load() Config {
	// .env is optional; real env always wins
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] could not read .env: %v", err)
	}

	cfg := Config{
		Port:           env("PORT", "8080"),
		DBDSN:          env("DB_DSN", "hospverse.db"), // sqlite file in project root
		LogFile:        env("LOG_FILE", "./hospverse.log"),
		LogLevel:       env("LOG_LEVEL", "info"),
		TemplatesDir:   env("TEMPLATES_DIR", "./web/templates"),
		StaticDir:      env("STATIC_DIR", "./web/static"),
		TenantsFile:    env("TENANTS_FILE", "configs/tenants.yaml"),
		DefaultTenant:  env("DEFAULT_TENANT", "client-123"),
		SessionBackend: env("SESSION_BACKEND", "sql"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		JWTSecret:      env("JWT_SECRET", "dev-secret-change-me"),

		AccessTokenTTL:       duration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		QueueRefreshInterval: duration("QUEUE_REFRESH_INTERVAL", 30*time.Second),
		DemoLogin:            boolean("DEMO_LOGIN", true),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s SESSION_BACKEND=%s QUEUE_REFRESH_INTERVAL=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.SessionBackend, cfg.QueueRefreshInterval)
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] bad %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
