package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Console ConsoleConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogPath       string
	WsLogPath          string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StaticDir          string
}

type ConsoleConfig struct {
	BackendURL      string
	LoginPath       string
	MePath          string
	LoginTimeout    time.Duration
	CookieName      string
	CookieSecure    bool
	IdleTTL         time.Duration
	DurableSessions bool
	// TokenFallbackTTL bounds durable sessions whose token has no expiry.
	TokenFallbackTTL time.Duration
	HomePath         string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/console.log"),
			AuditLogPath:       getEnv("AUDIT_LOG_PATH", "logs/session_audit.log"),
			WsLogPath:          getEnv("WS_LOG_PATH", "logs/websocket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			StaticDir:          getEnv("STATIC_DIR", ""),
		},
		Console: ConsoleConfig{
			BackendURL:       getEnv("BACKEND_URL", "http://localhost:8000"),
			LoginPath:        getEnv("BACKEND_LOGIN_PATH", "/api/v1/auth/login"),
			MePath:           getEnv("BACKEND_ME_PATH", "/api/v1/auth/me"),
			LoginTimeout:     getEnvAsDuration("LOGIN_TIMEOUT", 15*time.Second),
			CookieName:       getEnv("CONSOLE_COOKIE_NAME", "ihub_console"),
			CookieSecure:     getEnvAsBool("CONSOLE_COOKIE_SECURE", false),
			IdleTTL:          getEnvAsDuration("CONSOLE_IDLE_TTL", time.Hour),
			DurableSessions:  getEnvAsBool("DURABLE_SESSIONS", true),
			TokenFallbackTTL: getEnvAsDuration("TOKEN_FALLBACK_TTL", 24*time.Hour),
			HomePath:         getEnv("CONSOLE_HOME_PATH", "/dashboard"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
