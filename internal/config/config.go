package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SecurityConfig represents security configuration
type SecurityConfig struct {
	EnableRateLimit       bool
	RateLimitPerSecond    float64
	RateLimitBurst        int
	EnableCORS            bool
	AllowedOrigins        []string
	EnableSecurityHeaders bool
	MaxRequestSize        int64
	EnableRequestID       bool
}

type Config struct {
	Port             int
	NewsBaseURL      string
	CacheTTL         time.Duration
	TopStoriesLimit  int
	FetchConcurrency int
	HTTPTimeout      time.Duration
	RequestTimeout   time.Duration
	EnablePoller     bool
	PollInterval     time.Duration
	LogLevel         string
	EnableSwagger    bool
	Security         SecurityConfig
}

func Load() *Config {
	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		NewsBaseURL:      strings.TrimRight(getEnv("NEWS_BASE_URL", "https://hacker-news.firebaseio.com/v0"), "/"),
		CacheTTL:         getEnvAsPositiveDuration("CACHE_TTL", 5*time.Minute),
		TopStoriesLimit:  getEnvAsPositiveInt("TOP_STORIES_LIMIT", 200),
		FetchConcurrency: getEnvAsPositiveInt("FETCH_CONCURRENCY", 8),
		HTTPTimeout:      getEnvAsPositiveDuration("HTTP_TIMEOUT", 10*time.Second),
		RequestTimeout:   getEnvAsPositiveDuration("REQUEST_TIMEOUT", 30*time.Second),
		EnablePoller:     getEnvAsBool("ENABLE_POLLER", false),
		PollInterval:     getEnvAsPositiveDuration("POLL_INTERVAL", 5*time.Minute),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		EnableSwagger:    getEnvAsBool("ENABLE_SWAGGER", true),
		Security:         loadSecurityConfig(),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableRateLimit:       getEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitPerSecond:    getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10.0),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
		EnableCORS:            getEnvAsBool("ENABLE_CORS", true),
		AllowedOrigins:        getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"http://localhost:4200"}),
		EnableSecurityHeaders: getEnvAsBool("ENABLE_SECURITY_HEADERS", true),
		MaxRequestSize:        getEnvAsInt64("MAX_REQUEST_SIZE", 1<<20), // 1MB, the API only takes query params
		EnableRequestID:       getEnvAsBool("ENABLE_REQUEST_ID", true),
	}
}

func getEnv(key string, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsPositiveInt(key string, defaultVal int) int {
	if v := getEnvAsInt(key, defaultVal); v > 0 {
		return v
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	if d := getEnvAsDuration(key, defaultVal); d > 0 {
		return d
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		origins := strings.Split(val, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		return origins
	}
	return defaultVal
}
