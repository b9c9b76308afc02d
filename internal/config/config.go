package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	ORSAPIKey        string
	ORSBaseURL       string
	ORSProfile       string
	ORSRatePerSecond float64
	MatrixCacheTTL   time.Duration
	MatrixCacheSize  int
	MatrixTimeout    time.Duration
	SolveTimeout     time.Duration
	EngineConfigPath string
	LogLevel         string
	LogFormat        string
}

// Load reads the configuration from environment variables.
// Callers load .env files (godotenv) before calling Load.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             Get("PORT", "8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		ORSAPIKey:        strings.TrimSpace(os.Getenv("ORS_API_KEY")),
		ORSBaseURL:       Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		ORSProfile:       Get("ORS_PROFILE", "driving-car"),
		ORSRatePerSecond: GetFloat("ORS_RATE_PER_SECOND", 2),
		MatrixCacheTTL:   GetDuration("MATRIX_CACHE_TTL", 15*time.Minute),
		MatrixCacheSize:  GetInt("MATRIX_CACHE_SIZE", 256),
		MatrixTimeout:    GetDuration("MATRIX_TIMEOUT", 20*time.Second),
		SolveTimeout:     GetDuration("SOLVE_TIMEOUT", 60*time.Second),
		EngineConfigPath: strings.TrimSpace(os.Getenv("ENGINE_CONFIG_PATH")),
		LogLevel:         Get("LOG_LEVEL", "info"),
		LogFormat:        Get("LOG_FORMAT", "json"),
	}

	if cfg.MatrixCacheTTL <= 0 {
		return nil, fmt.Errorf("load config: MATRIX_CACHE_TTL must be positive")
	}
	if cfg.MatrixCacheSize <= 0 {
		return nil, fmt.Errorf("load config: MATRIX_CACHE_SIZE must be positive")
	}

	return cfg, nil
}

// LoadYAML decodes the YAML file at path into out. Fields absent from the
// file keep the values already present in out.
func LoadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load yaml: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("load yaml: parse %q: %w", path, err)
	}
	return nil
}

func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func GetFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
