package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_TEMPERATURE", "EXTRACTION_MAX_RETRIES",
		"EXTRACTOR", "MAX_IMAGE_DIMENSION", "FONT_DIR", "TABLE_MIN_ROWS", "HTTP_ADDR",
		"CORS_ALLOWED_ORIGINS", "MAX_UPLOAD_MB", "GOOGLE_SHEET_WORKSHEET", "BATCH_WORKERS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.Extractor != "openai" {
		t.Errorf("model = %q, extractor = %q", cfg.OpenAIModel, cfg.Extractor)
	}
	if cfg.OpenAITemperature != 0.1 || cfg.ExtractionMaxRetries != 3 {
		t.Errorf("temperature = %v, retries = %d", cfg.OpenAITemperature, cfg.ExtractionMaxRetries)
	}
	if cfg.MaxImageDimension != 1600 || cfg.TableMinRows != 0 || cfg.MaxUploadMB != 10 || cfg.BatchWorkers != 4 {
		t.Errorf("limits = %d %d %d %d", cfg.MaxImageDimension, cfg.TableMinRows, cfg.MaxUploadMB, cfg.BatchWorkers)
	}
	if cfg.FontDir != "fonts" || cfg.HTTPAddr != ":8080" || cfg.GoogleSheetWorksheet != "Factures" {
		t.Errorf("font dir = %q, addr = %q, worksheet = %q", cfg.FontDir, cfg.HTTPAddr, cfg.GoogleSheetWorksheet)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORS origins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXTRACTOR", "documentai")
	t.Setenv("TABLE_MIN_ROWS", "12")
	t.Setenv("OPENAI_TEMPERATURE", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Extractor != "documentai" || cfg.TableMinRows != 12 || cfg.OpenAITemperature != 0.5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORS origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, value := range []string{"-1", "many"} {
		t.Run("TABLE_MIN_ROWS="+value, func(t *testing.T) {
			t.Setenv("TABLE_MIN_ROWS", value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want an error")
			}
			if !strings.Contains(err.Error(), "TABLE_MIN_ROWS") {
				t.Errorf("Load() error = %v, want it to mention TABLE_MIN_ROWS", err)
			}
		})
	}
}

func TestLoadDefersCommandSettings(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(*Config) error
	}{
		{"EXTRACTOR", "tesseract", (*Config).RequireExtraction},
		{"OPENAI_TEMPERATURE", "3", (*Config).RequireExtraction},
		{"OPENAI_TEMPERATURE", "chaud", (*Config).RequireExtraction},
		{"EXTRACTION_MAX_RETRIES", "0", (*Config).RequireExtraction},
		{"MAX_IMAGE_DIMENSION", "large", (*Config).RequireExtraction},
		{"BATCH_WORKERS", "0", (*Config).RequireBatch},
		{"BATCH_WORKERS", "many", (*Config).RequireBatch},
		{"MAX_UPLOAD_MB", "-5", (*Config).RequireServer},
		{"MAX_UPLOAD_MB", "dix", (*Config).RequireServer},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(tt.key, tt.value)

			// Rendering a local record does not depend on these settings.
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			err = tt.check(cfg)
			if err == nil {
				t.Fatal("check error = nil, want an error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("check error = %v, want it to mention %s", err, tt.key)
			}
		})
	}
}

func TestRequireServerAndBatchDefaults(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("BATCH_WORKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.RequireServer(); err != nil {
		t.Errorf("RequireServer() error = %v", err)
	}
	if err := cfg.RequireBatch(); err != nil {
		t.Errorf("RequireBatch() error = %v", err)
	}
}

func TestRequireExtraction(t *testing.T) {
	base := Config{ExtractionMaxRetries: 3, MaxImageDimension: 1600, OpenAITemperature: 0.1}
	with := func(modify func(*Config)) Config {
		cfg := base
		modify(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai with key", with(func(c *Config) { c.Extractor, c.OpenAIAPIKey = "openai", "sk" }), false},
		{"openai without key", with(func(c *Config) { c.Extractor = "openai" }), true},
		{"ocr without key", with(func(c *Config) { c.Extractor = "ocr" }), true},
		{"documentai complete", with(func(c *Config) {
			c.Extractor, c.GoogleCloudProject, c.DocumentAIProcessorID = "documentai", "p", "x"
		}), false},
		{"documentai without processor", with(func(c *Config) { c.Extractor, c.GoogleCloudProject = "documentai", "p" }), true},
		{"unknown extractor", with(func(c *Config) { c.Extractor, c.OpenAIAPIKey = "tesseract", "sk" }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.RequireExtraction(); (err != nil) != tt.wantErr {
				t.Errorf("RequireExtraction() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
