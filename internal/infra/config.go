package infra

import (
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	OutputDir     string
	PublicBaseURL string
	GeoIPDBPath   string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	MeshyAPIKey      string
	MeshyBaseURL     string
	MeshTimeout      time.Duration
	MeshPollInterval time.Duration
	MeshPoolSize     int

	ShapewaysClientID     string
	ShapewaysClientSecret string
	ShapewaysBaseURL      string

	QueueCapacity    int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the service
// runs on the in-memory job store, which is enough for local development.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		OutputDir:     getEnv("OUTPUT_DIR", "./output"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp-image-generation"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		MeshyAPIKey:      os.Getenv("MESHY_API_KEY"),
		MeshyBaseURL:     getEnv("MESHY_BASE_URL", "https://api.meshy.ai"),
		MeshTimeout:      time.Second * time.Duration(getEnvInt("MESH_TIMEOUT_SECONDS", 600)),
		MeshPollInterval: time.Second * time.Duration(getEnvInt("MESH_POLL_INTERVAL_SECONDS", 5)),
		MeshPoolSize:     getEnvInt("MESH_POOL_SIZE", 2),

		ShapewaysClientID:     os.Getenv("SHAPEWAYS_CLIENT_ID"),
		ShapewaysClientSecret: os.Getenv("SHAPEWAYS_CLIENT_SECRET"),
		ShapewaysBaseURL:      getEnv("SHAPEWAYS_BASE_URL", "https://api.shapeways.com"),

		QueueCapacity:    getEnvInt("JOB_QUEUE_CAPACITY", 128),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
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
