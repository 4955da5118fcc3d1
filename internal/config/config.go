package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"invoicer/internal/logger"
)

type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAITemperature    float32
	ExtractionMaxRetries int

	// Extraction
	Extractor         string // openai, ocr or documentai
	MaxImageDimension int

	// Rendering
	FontDir      string
	TableMinRows int

	// HTTP server
	HTTPAddr           string
	CORSAllowedOrigins []string
	MaxUploadMB        int

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Batch processing
	BatchWorkers int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string

	// parseErrors holds malformed numeric variables, reported by the
	// checks of the commands that use them.
	parseErrors map[string]error
}

func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Extractor:                  getEnv("EXTRACTOR", "openai"),
		FontDir:                    getEnv("FONT_DIR", "fonts"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins:         splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Factures"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stdout"),
	}

	config.OpenAITemperature = config.getFloat32("OPENAI_TEMPERATURE", 0.1)
	config.ExtractionMaxRetries = config.getInt("EXTRACTION_MAX_RETRIES", 3)
	config.MaxImageDimension = config.getInt("MAX_IMAGE_DIMENSION", 1600)
	config.TableMinRows = config.getInt("TABLE_MIN_ROWS", 0)
	config.MaxUploadMB = config.getInt("MAX_UPLOAD_MB", 10)
	config.BatchWorkers = config.getInt("BATCH_WORKERS", 4)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks the settings every command uses. Settings only some
// commands need are checked by the Require methods.
func (c *Config) validate() error {
	if err := c.parseError("TABLE_MIN_ROWS"); err != nil {
		return err
	}
	if c.TableMinRows < 0 {
		return fmt.Errorf("TABLE_MIN_ROWS cannot be negative")
	}
	return nil
}

// RequireExtraction checks the settings needed by the configured extractor.
func (c *Config) RequireExtraction() error {
	for _, key := range []string{"OPENAI_TEMPERATURE", "EXTRACTION_MAX_RETRIES", "MAX_IMAGE_DIMENSION"} {
		if err := c.parseError(key); err != nil {
			return err
		}
	}

	switch c.Extractor {
	case "openai", "ocr", "documentai":
	default:
		return fmt.Errorf("EXTRACTOR must be openai, ocr or documentai, got %q", c.Extractor)
	}
	if c.ExtractionMaxRetries <= 0 {
		return fmt.Errorf("EXTRACTION_MAX_RETRIES must be positive")
	}
	if c.MaxImageDimension <= 0 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION must be positive")
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}

	if c.Extractor != "documentai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Extractor == "documentai" {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
		}
	}
	return nil
}

// RequireServer checks the HTTP server settings.
func (c *Config) RequireServer() error {
	if err := c.parseError("MAX_UPLOAD_MB"); err != nil {
		return err
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// RequireBatch checks the batch worker settings.
func (c *Config) RequireBatch() error {
	if err := c.parseError("BATCH_WORKERS"); err != nil {
		return err
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.invalid(key, fmt.Errorf("%s must be an integer: %w", key, err))
		return defaultValue
	}
	return n
}

func (c *Config) getFloat32(key string, defaultValue float32) float32 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		c.invalid(key, fmt.Errorf("%s must be a number: %w", key, err))
		return defaultValue
	}
	return float32(f)
}

func (c *Config) invalid(key string, err error) {
	if c.parseErrors == nil {
		c.parseErrors = make(map[string]error)
	}
	c.parseErrors[key] = err
}

func (c *Config) parseError(key string) error {
	return c.parseErrors[key]
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
