package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"fitflow-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogLevel        string
	LogFormat       string

	// LogStore selects the check-in and notification log: memory, sqlite or postgres.
	LogStore    string
	DatabaseURL string
	SQLitePath  string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	QueueURL        string

	LLMProvider    string
	LLMModel       string
	LLMVisionModel string
	LLMBaseURL     string
	NIMAPIKey      string
	LLMCacheSize   int

	RulesFile   string
	JWTSecret   string
	WorkoutHour int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	NotifyWebhookURL  string
	NotifyWebhookType string
	SMTP              SMTP
}

// SMTP configures the email notification sink. Host empty disables it.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, p := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(p)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),

		LogStore:    normalizeLogStore(getEnv("LOG_STORE", ""), dbURL),
		DatabaseURL: dbURL,
		SQLitePath:  getEnv("SQLITE_PATH", "./data/fitflow.db"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		QueueURL:        getEnv("FITFLOW_SQS_QUEUE_URL", ""),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "nim")),
		LLMModel:       getEnv("LLM_MODEL", "meta/llama-3.1-8b-instruct"),
		LLMVisionModel: getEnv("LLM_VISION_MODEL", "nvidia/nemotron-nano-12b-v2-vl"),
		LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
		NIMAPIKey:      getEnv("NIM_API_KEY", ""),
		LLMCacheSize:   getEnvInt("LLM_CACHE_SIZE", 128),

		RulesFile:   getEnv("RULES_FILE", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		WorkoutHour: getEnvInt("WORKOUT_HOUR", 18),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", "http://localhost:5173/auth/callback"),

		NotifyWebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyWebhookType: getEnv("NOTIFY_WEBHOOK_TYPE", "http"),
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			To:       getEnv("SMTP_TO", ""),
		},
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw, "default": def})
		return def
	}
	return n
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// normalizeLogStore falls back to postgres when DATABASE_URL is set and memory otherwise.
func normalizeLogStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite":
		return "sqlite"
	case "postgres", "pg":
		return "postgres"
	case "memory":
		return "memory"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "memory"
}
