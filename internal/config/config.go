package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer auth.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Pipeline
	QueueSize int
	JobTTL    time.Duration
	DocTTL    time.Duration

	// Parsing
	StreamThreshold      int
	HonorNamespaces      bool
	PDFFallbackPdftotext bool

	// Tokenization
	DefaultModel string

	// Transform defaults
	AggregationThreshold float64
	MaxVisibleNodes      int
	MaxDepth             int
	PreviewLength        int
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("TOKSCOPE_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		QueueSize: envInt("QUEUE_SIZE", 100),
		JobTTL:    envDuration("JOB_TTL", 1*time.Hour),
		DocTTL:    envDuration("DOC_TTL", 1*time.Hour),

		StreamThreshold:      envInt("STREAM_THRESHOLD", 2<<20), // 2MiB
		HonorNamespaces:      envBool("HONOR_NAMESPACES", false),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		DefaultModel: envOr("DEFAULT_MODEL", "gpt-4o"),

		AggregationThreshold: envFloat("AGG_THRESHOLD", 0.0075),
		MaxVisibleNodes:      envInt("MAX_VISIBLE_NODES", 2000),
		MaxDepth:             envInt("MAX_DEPTH", 0),
		PreviewLength:        envInt("PREVIEW_LENGTH", 160),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DocTTL <= 0 {
		cfg.DocTTL = 1 * time.Hour
	}
	if cfg.StreamThreshold <= 0 {
		cfg.StreamThreshold = 2 << 20
	}
	if cfg.AggregationThreshold < 0 {
		cfg.AggregationThreshold = 0.0075
	}
	if cfg.MaxVisibleNodes <= 0 {
		cfg.MaxVisibleNodes = 2000
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = 160
	}

	return cfg
}

// Validate catches configurations Load's clamping cannot reach, such as
// structs built directly by the CLI.
func (c Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("DEFAULT_MODEL must not be empty")
	}
	if c.AggregationThreshold < 0 {
		return fmt.Errorf("AGG_THRESHOLD must not be negative")
	}
	if c.MaxVisibleNodes < 1 {
		return fmt.Errorf("MAX_VISIBLE_NODES must be positive")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("MAX_DEPTH must not be negative")
	}
	if c.PreviewLength < 1 {
		return fmt.Errorf("PREVIEW_LENGTH must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
