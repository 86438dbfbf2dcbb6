package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Storage   StorageConfig
	Registry  RegistryConfig
	Generator GeneratorConfig
	Redis     RedisConfig
	App       AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type StoreConfig struct {
	// Backend selects the project store implementation: "file" keeps the
	// whole collection in one JSON file, "postgres" keeps one JSONB
	// document per project.
	Backend  string
	FilePath string
	DSN      string
}

type StorageConfig struct {
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Timeout      time.Duration
}

type RegistryConfig struct {
	BaseURL string
	APIKey  string
	Zone    string
	Timeout time.Duration
}

type GeneratorConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	VisionModel string
	RPS         float64
	Burst       int
}

type RedisConfig struct {
	Addr     string // empty disables the site cache
	Password string
	DB       int
}

type AppConfig struct {
	Environment string
	Version     string
	JanitorCron string // empty disables the orphan sweep
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: splitEnv("ALLOWED_ORIGINS"),
		},
		Store: StoreConfig{
			Backend:  getEnv("STORE_BACKEND", "file"),
			FilePath: getEnv("STORE_FILE", "data/projects.json"),
			DSN:      getEnv("STORE_DSN", ""),
		},
		Storage: StorageConfig{
			Region:       getEnv("S3_REGION", "us-east-1"),
			Bucket:       getEnv("S3_BUCKET", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			BaseEndpoint: getEnv("S3_ENDPOINT", ""),
			Timeout:      getEnvAsDuration("S3_TIMEOUT", 15*time.Second),
		},
		Registry: RegistryConfig{
			BaseURL: getEnv("REGISTRY_URL", ""),
			APIKey:  getEnv("REGISTRY_API_KEY", ""),
			Zone:    getEnv("REGISTRY_ZONE", "example"),
			Timeout: getEnvAsDuration("REGISTRY_TIMEOUT", 10*time.Second),
		},
		Generator: GeneratorConfig{
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			VisionModel: getEnv("LLM_VISION_MODEL", "gpt-4o-mini"),
			RPS:         getEnvAsFloat("LLM_RPS", 1),
			Burst:       getEnvAsInt("LLM_BURST", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			JanitorCron: getEnv("JANITOR_CRON", "@hourly"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.FilePath == "" {
			return fmt.Errorf("STORE_FILE is required for the file backend")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("STORE_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want file or postgres)", c.Store.Backend)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("REGISTRY_URL is required")
	}
	if c.Generator.BaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func splitEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
