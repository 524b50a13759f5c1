package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	RunMigrations   bool

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool

	LLMProvider  string
	LLMModel     string
	GeminiAPIKey string
	GeminiAPIURL string
	OpenAIAPIKey string
	LLMTimeout   time.Duration

	AnalysisDispatch    string
	MaxDocumentChars    int
	SweepInterval       time.Duration
	StuckAfter          time.Duration
	QueueBackend        string
	SQSQueueURL         string
	KafkaBrokers        []string
	KafkaTopic          string
	KafkaGroupID        string
	RedisAddr           string
	RedisPassword       string
	AIRequestsPerMinute int

	WorkerConcurrency    int
	SQSVisibilitySeconds int
	ShutdownTimeout      time.Duration

	JWTSecret     string
	JWTExpiration time.Duration
	TikaURL       string
	LogLevel      string
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"ENV":                         "dev",
	"CORS_ALLOW_ORIGINS":          "http://localhost:3000",
	"RUN_MIGRATIONS":              false,
	"OBJECT_STORE":                "local",
	"LOCAL_STORE_DIR":             "./data",
	"MINIO_BUCKET":                "legal-documents",
	"MINIO_USE_SSL":               false,
	"LLM_PROVIDER":                "gemini",
	"LLM_MODEL":                   "",
	"GEMINI_API_URL":              "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
	"LLM_TIMEOUT_SECONDS":         60,
	"ANALYSIS_DISPATCH":           "sync",
	"ANALYSIS_MAX_DOCUMENT_CHARS": 100000,
	"ANALYSIS_SWEEP_INTERVAL":     "1m",
	"ANALYSIS_STUCK_AFTER":        "10m",
	"QUEUE_BACKEND":               "none",
	"KAFKA_TOPIC":                 "document-analyses",
	"KAFKA_GROUP_ID":              "legal-analysis-worker",
	"RATE_LIMIT_AI_PER_MINUTE":    30,
	"WORKER_CONCURRENCY":          4,
	"SQS_VISIBILITY_SECONDS":      1200,
	"SHUTDOWN_TIMEOUT_SECONDS":    30,
	"JWT_EXPIRATION_HOURS":        24,
	"LOG_LEVEL":                   "info",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Error("config.invalid", map[string]any{"reason": "DATABASE_URL is required in production"})
	}

	return Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:     dbURL,
		RunMigrations:   v.GetBool("RUN_MIGRATIONS"),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		MinIOEndpoint:   v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey:  v.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:     v.GetString("MINIO_BUCKET"),
		MinIOUseSSL:     v.GetBool("MINIO_USE_SSL"),

		LLMProvider:  normalizeProvider(v.GetString("LLM_PROVIDER")),
		LLMModel:     v.GetString("LLM_MODEL"),
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
		GeminiAPIURL: v.GetString("GEMINI_API_URL"),
		OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),
		LLMTimeout:   positiveSeconds(v.GetInt("LLM_TIMEOUT_SECONDS"), 60),

		AnalysisDispatch:    normalizeDispatch(v.GetString("ANALYSIS_DISPATCH")),
		MaxDocumentChars:    v.GetInt("ANALYSIS_MAX_DOCUMENT_CHARS"),
		SweepInterval:       v.GetDuration("ANALYSIS_SWEEP_INTERVAL"),
		StuckAfter:          v.GetDuration("ANALYSIS_STUCK_AFTER"),
		QueueBackend:        normalizeQueueBackend(v.GetString("QUEUE_BACKEND")),
		SQSQueueURL:         v.GetString("SQS_QUEUE_URL"),
		KafkaBrokers:        splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:          v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:        v.GetString("KAFKA_GROUP_ID"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		AIRequestsPerMinute: v.GetInt("RATE_LIMIT_AI_PER_MINUTE"),

		WorkerConcurrency:    max(1, v.GetInt("WORKER_CONCURRENCY")),
		SQSVisibilitySeconds: v.GetInt("SQS_VISIBILITY_SECONDS"),
		ShutdownTimeout:      positiveSeconds(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS"), 30),

		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTExpiration: time.Duration(max(1, v.GetInt("JWT_EXPIRATION_HOURS"))) * time.Hour,
		TikaURL:       v.GetString("TIKA_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}
}

func positiveSeconds(raw, def int) time.Duration {
	if raw <= 0 {
		raw = def
	}
	return time.Duration(raw) * time.Second
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
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "placeholder", "none":
		return "placeholder"
	default:
		return "gemini"
	}
}

func normalizeDispatch(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "async") {
		return "async"
	}
	return "sync"
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "kafka":
		return "kafka"
	default:
		return "none"
	}
}
