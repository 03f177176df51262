package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	DatabaseURL string
	EnableDB    bool
	CORSOrigins []string
	Analysis    AnalysisConfig
	RateLimit   RateLimitConfig
}

type AnalysisConfig struct {
	// MaxUploadMB caps a single uploaded file.
	MaxUploadMB int
	Timeout     time.Duration
	OCRLanguage string
}

func (a AnalysisConfig) MaxUploadBytes() int64 {
	return int64(a.MaxUploadMB) << 20
}

// RateLimitConfig bounds analysis requests per client IP.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "release"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),
		Analysis: AnalysisConfig{
			MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 20),
			Timeout:     getEnvDuration("ANALYSIS_TIMEOUT", 60*time.Second),
			OCRLanguage: getEnv("OCR_LANGUAGE", "eng"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 2),
			Burst: getEnvInt("RATE_LIMIT_BURST", 5),
		},
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if cfg.Analysis.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.Analysis.MaxUploadMB)
	}
	if cfg.Analysis.Timeout <= 0 {
		return nil, fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", cfg.Analysis.Timeout)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
