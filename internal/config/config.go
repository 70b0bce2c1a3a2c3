package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Gemini upstream
	GeminiAPIKey  string
	GeminiBackend string

	// Per-client fixed-window quotas
	ChatRateLimit   int
	ImageRateLimit  int
	RateLimitWindow time.Duration
	RateLimitStore  string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
	MetricsEnabled     bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GeminiAPIKey:  strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiBackend: strings.ToLower(strings.TrimSpace(getEnv("GEMINI_BACKEND", "genai"))),

		ChatRateLimit:   getEnvAsInt("CHAT_RATE_LIMIT", 10),
		ImageRateLimit:  getEnvAsInt("IMAGE_RATE_LIMIT", 10),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitStore:  strings.ToLower(strings.TrimSpace(getEnv("RATE_LIMIT_STORE", "memory"))),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:       int64(getEnvAsInt("MAX_BODY_BYTES", 1<<20)),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
	}
}

// IsProduction reports whether debug detail must be scrubbed from responses.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
