package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port           string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend    string
	SourceCacheTTL time.Duration

	// CSV
	DatasetPath string

	// Database
	SQLiteDBPath  string
	PostgresDSN   string
	PostgresTable string

	// S3
	S3Bucket   string
	S3Key      string
	AWSProfile string
	AWSRegion  string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	ImportSchedule string
	KeepImports    int

	// Uploads
	UploadMaxBytes int64
	UploadMaxCount int
	UploadTTL      time.Duration

	// Presentation
	KPIPath          string
	StylePath        string
	AgePreferDerived bool
}

var validBackends = []string{"csv", "sqlite", "sheets", "s3", "postgres"}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 7*time.Second),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:    getEnv("DATA_BACKEND", "csv"),
		SourceCacheTTL: getEnvDuration("SOURCE_CACHE_TTL", 5*time.Minute),

		DatasetPath: getEnv("DATASET_PATH", "./data/aggregated_df.csv"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/riskdash.db"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		PostgresTable: getEnv("POSTGRES_TABLE", "aggregated_df"),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		S3Key:      getEnv("S3_KEY", ""),
		AWSProfile: getEnv("AWS_PROFILE", ""),
		AWSRegion:  getEnv("AWS_REGION", ""),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "aggregated_df"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "riskdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_imports"),

		ImportSchedule: getEnv("IMPORT_SCHEDULE", ""),
		KeepImports:    getEnvInt("KEEP_IMPORTS", 5),

		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
		UploadMaxCount: getEnvInt("UPLOAD_MAX_COUNT", 32),
		UploadTTL:      getEnvDuration("UPLOAD_TTL", time.Hour),

		KPIPath:          getEnv("KPI_PATH", "./data/kpis.json"),
		StylePath:        getEnv("STYLE_PATH", ""),
		AgePreferDerived: getEnvBool("AGE_PREFER_DERIVED", false),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.DatasetPath == "" {
			errors = append(errors, "dataset path cannot be empty when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case "s3":
		if c.S3Bucket == "" || c.S3Key == "" {
			errors = append(errors, "S3_BUCKET and S3_KEY are required when using s3 backend")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ImportSchedule != "" {
		if _, err := cron.ParseStandard(c.ImportSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid import schedule '%s': %v", c.ImportSchedule, err))
		}
	}
	if c.KeepImports < 1 {
		errors = append(errors, fmt.Sprintf("invalid keep imports %d: must be at least 1", c.KeepImports))
	}

	if c.RequestTimeout < 100*time.Millisecond || c.RequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be between 100ms and 5m", c.RequestTimeout))
	}
	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if c.UploadMaxBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid upload size limit %d: must be at least 1024 bytes", c.UploadMaxBytes))
	}
	if c.UploadMaxCount < 1 {
		errors = append(errors, fmt.Sprintf("invalid upload count %d: must be at least 1", c.UploadMaxCount))
	}
	if c.UploadTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid upload ttl %v: must be at least 1 minute", c.UploadTTL))
	}

	if c.StylePath != "" {
		if _, err := os.Stat(c.StylePath); err != nil {
			errors = append(errors, fmt.Sprintf("style file is not readable: %s", c.StylePath))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
