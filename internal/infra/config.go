package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Dispatch modes selecting which job processor gets wired at startup.
const (
	DispatchModeLocal   = "local"
	DispatchModeDurable = "durable"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	JWTSecret   string

	JobDispatchMode    string
	InternalJobSecret  string
	TaskDeliveryURL    string
	TaskDeliveryAPIKey string
	JobCallbackBaseURL string
	JobTimeout         time.Duration
	JobQueueDelay      time.Duration

	SchedulerInterval time.Duration
	RunScheduler      bool

	LLMAPIKey          string
	LLMModel           string
	LLMBaseURL         string
	ActivityGatewayURL string

	GeoIPDBPath   string
	StoragePath   string
	DefaultLocale string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	AllowedOrigins   []string
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		JobDispatchMode:    getEnv("JOB_DISPATCH_MODE", DispatchModeLocal),
		InternalJobSecret:  os.Getenv("INTERNAL_JOB_SECRET"),
		TaskDeliveryURL:    os.Getenv("TASK_DELIVERY_URL"),
		TaskDeliveryAPIKey: os.Getenv("TASK_DELIVERY_API_KEY"),
		JobCallbackBaseURL: getEnv("JOB_CALLBACK_BASE_URL", "http://localhost:8080"),
		JobTimeout:         time.Second * time.Duration(getEnvInt("JOB_TIMEOUT_SECONDS", 600)),
		JobQueueDelay:      time.Millisecond * time.Duration(getEnvInt("JOB_QUEUE_DELAY_MS", 100)),

		SchedulerInterval: time.Second * time.Duration(getEnvInt("SCHEDULER_INTERVAL_SECONDS", 3600)),
		RunScheduler:      getEnvBool("RUN_SCHEDULER", false),

		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMModel:           getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ActivityGatewayURL: os.Getenv("ACTIVITY_GATEWAY_URL"),

		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		StoragePath:   getEnv("STORAGE_PATH", "./storage"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MIN", 120),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.JobDispatchMode {
	case DispatchModeLocal:
	case DispatchModeDurable:
		if cfg.TaskDeliveryURL == "" {
			return nil, fmt.Errorf("TASK_DELIVERY_URL is required in durable dispatch mode")
		}
		if cfg.InternalJobSecret == "" {
			return nil, fmt.Errorf("INTERNAL_JOB_SECRET is required in durable dispatch mode")
		}
	default:
		return nil, fmt.Errorf("JOB_DISPATCH_MODE must be %q or %q", DispatchModeLocal, DispatchModeDurable)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
