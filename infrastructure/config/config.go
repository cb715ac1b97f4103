package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	Version         string
	DefaultUserID   string
	AllowedOrigins  []string
	DynamicConfig   string // path to the hot-reloaded YAML tunables
	UploadDir       string
	MaxUploadBytes  int64
	CaptureRPS      float64
	CaptureBurst    int
	ShutdownTimeout time.Duration

	// Storage
	DatabaseURL     string
	DatabaseMaxConn int
	RedisURL        string
	SettingsTTL     time.Duration
	EventChannel    string

	// AWS
	AWSRegion    string
	EventBusName string
	EventSource  string
	IsLambda     bool

	// Integrations
	LLM        LLMConfig
	Embedding  EmbeddingConfig
	ComfyUIURL string

	Pipeline      PipelineConfig
	Notifications NotificationConfig
	Scheduler     SchedulerConfig

	// Logging and observability
	LogLevel        string
	EnableMetrics   bool
	EnableTracing   bool
	TracingURL      string
	TraceSampleRate float64
}

// LLMConfig configures the completion providers. Providers without a key are
// skipped; with no providers at all the agents fall back to rule-based logic.
type LLMConfig struct {
	AnthropicAPIKey  string
	AnthropicModel   string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	WhisperModel     string
	RequestsPerSec   float64
	Burst            int
	Timeout          time.Duration
	BreakerThreshold float64
	BreakerMinCalls  uint32
	BreakerCooldown  time.Duration
}

// EmbeddingConfig configures vector embeddings.
type EmbeddingConfig struct {
	Model     string
	Dimension int
}

// PipelineConfig sizes the agent pipeline.
type PipelineConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// NotificationConfig sizes the notification dispatcher.
type NotificationConfig struct {
	MaxPerUser       int
	DefaultTTL       time.Duration
	AutoDismissAfter time.Duration
	SweepInterval    time.Duration
}

// SchedulerConfig sets background job intervals. A zero interval disables the job.
type SchedulerConfig struct {
	Enabled            bool
	StaleReview        time.Duration
	PriorityReview     time.Duration
	PatternReview      time.Duration
	EmbeddingBackfill  time.Duration
	EmbeddingBatchSize int
	LogCleanup         time.Duration
	LogRetention       time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8000"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		Version:         getEnv("APP_VERSION", "1.0.0"),
		DefaultUserID:   getEnv("DEFAULT_USER_ID", "default"),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		DynamicConfig:   getEnv("DYNAMIC_CONFIG_PATH", ""),
		UploadDir:       getEnv("UPLOAD_DIR", "data/audio"),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 25)) << 20,
		CaptureRPS:      getEnvFloat("CAPTURE_RPS", 5),
		CaptureBurst:    getEnvInt("CAPTURE_BURST", 10),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseMaxConn: getEnvInt("DATABASE_MAX_CONNS", 10),
		RedisURL:        getEnv("REDIS_URL", ""),
		SettingsTTL:     getEnvDuration("SETTINGS_CACHE_TTL", 10*time.Minute),
		EventChannel:    getEnv("REDIS_EVENT_CHANNEL", "dreamcatcher:events"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		EventBusName: getEnv("EVENT_BUS_NAME", ""),
		EventSource:  getEnv("EVENT_SOURCE", "dreamcatcher.api"),
		IsLambda:     getEnv("AWS_LAMBDA_FUNCTION_NAME", "") != "",

		LLM: LLMConfig{
			AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			WhisperModel:     getEnv("WHISPER_MODEL", "whisper-1"),
			RequestsPerSec:   getEnvFloat("LLM_RPS", 1),
			Burst:            getEnvInt("LLM_BURST", 3),
			Timeout:          getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			BreakerThreshold: getEnvFloat("LLM_BREAKER_THRESHOLD", 0.6),
			BreakerMinCalls:  uint32(getEnvInt("LLM_BREAKER_MIN_CALLS", 5)),
			BreakerCooldown:  getEnvDuration("LLM_BREAKER_COOLDOWN", 60*time.Second),
		},
		Embedding: EmbeddingConfig{
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 384),
		},
		ComfyUIURL: getEnv("COMFYUI_URL", ""),

		Pipeline: PipelineConfig{
			Workers:     getEnvInt("PIPELINE_WORKERS", 4),
			QueueSize:   getEnvInt("PIPELINE_QUEUE_SIZE", 256),
			TaskTimeout: getEnvDuration("PIPELINE_TASK_TIMEOUT", 5*time.Minute),
		},
		Notifications: NotificationConfig{
			MaxPerUser:       getEnvInt("NOTIFICATIONS_MAX", 50),
			DefaultTTL:       getEnvDuration("NOTIFICATIONS_TTL", 24*time.Hour),
			AutoDismissAfter: getEnvDuration("NOTIFICATIONS_AUTO_DISMISS", 5*time.Second),
			SweepInterval:    getEnvDuration("NOTIFICATIONS_SWEEP", time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getEnvBool("SCHEDULER_ENABLED", true),
			StaleReview:        getEnvDuration("SCHEDULE_STALE_REVIEW", time.Hour),
			PriorityReview:     getEnvDuration("SCHEDULE_PRIORITY_REVIEW", 30*time.Minute),
			PatternReview:      getEnvDuration("SCHEDULE_PATTERN_REVIEW", 7*24*time.Hour),
			EmbeddingBackfill:  getEnvDuration("SCHEDULE_EMBEDDING_BACKFILL", 5*time.Minute),
			EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 10),
			LogCleanup:         getEnvDuration("SCHEDULE_LOG_CLEANUP", 24*time.Hour),
			LogRetention:       getEnvDuration("AGENT_LOG_RETENTION", 30*24*time.Hour),
		},

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		EnableMetrics:   getEnvBool("ENABLE_METRICS", true),
		EnableTracing:   getEnvBool("ENABLE_TRACING", false),
		TracingURL:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRate: getEnvFloat("TRACE_SAMPLE_RATE", 0.1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive")
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("PIPELINE_QUEUE_SIZE must be positive")
	}
	if c.Notifications.MaxPerUser <= 0 {
		return fmt.Errorf("NOTIFICATIONS_MAX must be positive")
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATE must be between 0 and 1")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
