package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "TOKSCOPE_API_KEY", "MAX_UPLOAD_BYTES", "QUEUE_SIZE",
		"JOB_TTL", "DOC_TTL", "STREAM_THRESHOLD", "HONOR_NAMESPACES",
		"PDF_FALLBACK_PDFTOTEXT", "DEFAULT_MODEL", "AGG_THRESHOLD",
		"MAX_VISIBLE_NODES", "MAX_DEPTH", "PREVIEW_LENGTH",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.APIKey != "" {
		t.Errorf("expected empty API key, got %q", cfg.APIKey)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected 50MB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.QueueSize != 100 {
		t.Errorf("expected queue size 100, got %d", cfg.QueueSize)
	}
	if cfg.JobTTL != time.Hour || cfg.DocTTL != time.Hour {
		t.Errorf("expected 1h TTLs, got %v and %v", cfg.JobTTL, cfg.DocTTL)
	}
	if cfg.StreamThreshold != 2<<20 {
		t.Errorf("expected 2MiB stream threshold, got %d", cfg.StreamThreshold)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", cfg.DefaultModel)
	}
	if cfg.AggregationThreshold != 0.0075 {
		t.Errorf("expected threshold 0.0075, got %v", cfg.AggregationThreshold)
	}
	if cfg.MaxVisibleNodes != 2000 {
		t.Errorf("expected 2000 visible nodes, got %d", cfg.MaxVisibleNodes)
	}
	if cfg.PreviewLength != 160 {
		t.Errorf("expected preview length 160, got %d", cfg.PreviewLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("TOKSCOPE_API_KEY", "secret")
	t.Setenv("QUEUE_SIZE", "7")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("STREAM_THRESHOLD", "1024")
	t.Setenv("HONOR_NAMESPACES", "true")
	t.Setenv("DEFAULT_MODEL", "claude-3-5-sonnet")
	t.Setenv("AGG_THRESHOLD", "0.02")
	t.Setenv("MAX_DEPTH", "4")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %q", cfg.Port)
	}
	if cfg.APIKey != "secret" {
		t.Errorf("expected API key to load, got %q", cfg.APIKey)
	}
	if cfg.QueueSize != 7 {
		t.Errorf("expected queue size 7, got %d", cfg.QueueSize)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("expected 30m job TTL, got %v", cfg.JobTTL)
	}
	if cfg.StreamThreshold != 1024 {
		t.Errorf("expected stream threshold 1024, got %d", cfg.StreamThreshold)
	}
	if !cfg.HonorNamespaces {
		t.Error("expected HonorNamespaces true")
	}
	if cfg.DefaultModel != "claude-3-5-sonnet" {
		t.Errorf("expected model override, got %q", cfg.DefaultModel)
	}
	if cfg.AggregationThreshold != 0.02 {
		t.Errorf("expected threshold 0.02, got %v", cfg.AggregationThreshold)
	}
	if cfg.MaxDepth != 4 {
		t.Errorf("expected max depth 4, got %d", cfg.MaxDepth)
	}
}

func TestLoad_ClampsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUEUE_SIZE", "-1")
	t.Setenv("AGG_THRESHOLD", "-0.5")
	t.Setenv("MAX_VISIBLE_NODES", "0")
	t.Setenv("MAX_DEPTH", "-2")
	t.Setenv("PREVIEW_LENGTH", "-10")

	cfg := Load()
	if cfg.QueueSize != 100 {
		t.Errorf("expected clamped queue size 100, got %d", cfg.QueueSize)
	}
	if cfg.AggregationThreshold != 0.0075 {
		t.Errorf("expected clamped threshold, got %v", cfg.AggregationThreshold)
	}
	if cfg.MaxVisibleNodes != 2000 {
		t.Errorf("expected clamped visible nodes, got %d", cfg.MaxVisibleNodes)
	}
	if cfg.MaxDepth != 0 {
		t.Errorf("expected clamped depth 0, got %d", cfg.MaxDepth)
	}
	if cfg.PreviewLength != 160 {
		t.Errorf("expected clamped preview length, got %d", cfg.PreviewLength)
	}
}

func TestValidate_RejectsBadHandBuiltConfigs(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"empty model", func(c *Config) { c.DefaultModel = "" }},
		{"negative threshold", func(c *Config) { c.AggregationThreshold = -1 }},
		{"zero visible nodes", func(c *Config) { c.MaxVisibleNodes = 0 }},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }},
		{"zero preview", func(c *Config) { c.PreviewLength = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
