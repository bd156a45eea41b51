package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Storage
	StoreDriver   string
	DataDir       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Analytics
	HashSalt       string
	GeoIPDBPath    string
	CountryLocale  string
	AsyncClicks    bool
	ClickQueueSize int

	// Redirect limiter
	RedirectRateLimit  int
	RedirectRateWindow time.Duration
	TrustProxy         bool

	// Admin auth
	AdminUser          string
	AdminPass          string
	AdminPassHash      string
	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	AllowedEmails      []string
	FrontendURL        string

	MetricsEnabled bool
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "local"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "file")),
		DataDir:       getEnv("DATA_DIR", "data"),
		DatabaseURL:   getEnv("DATABASE_URL", "file:linkbio.sqlite"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "linkbio:"),

		HashSalt:       getEnv("HASH_SALT", getEnv("SESSION_SECRET", "supersecret")),
		GeoIPDBPath:    getEnv("GEOIP_DB_PATH", ""),
		CountryLocale:  getEnv("COUNTRY_LOCALE", "en"),
		AsyncClicks:    getBoolEnv("ASYNC_CLICKS", true),
		ClickQueueSize: getIntEnv("CLICK_QUEUE_SIZE", 1024),

		RedirectRateLimit:  getIntEnv("REDIRECT_RATE_LIMIT", 60),
		RedirectRateWindow: getDurationEnv("REDIRECT_RATE_WINDOW", time.Minute),
		TrustProxy:         getBoolEnv("TRUST_PROXY", true),

		AdminUser:          getEnv("ADMIN_USER", "admin"),
		AdminPass:          getEnv("ADMIN_PASS", "admin123"),
		AdminPassHash:      getEnv("ADMIN_PASS_HASH", ""),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		AllowedEmails:      getListEnv("ALLOWED_EMAILS"),
		FrontendURL:        getEnv("FRONTEND_URL", "/"),

		MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GoogleEnabled reports whether Google login is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
