package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends the dashboard can load its dataset from.
var (
	DataBackends   = []string{"file", "gcs", "sheets", "sqlite"}
	ImportBackends = []string{"file", "gcs", "sheets"}
	logLevels      = []string{"debug", "info", "warn", "warning", "error"}
)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RateLimitPerMinute int
	TrustedProxies     []string // CIDRs whose forwarding headers are believed

	// Backend selection
	DataBackend   string
	ImportBackend string

	// Dataset file (local path or gs:// URI for the gcs backend)
	DatasetPath     string
	DatasetSkipRows int
	DatasetSheet    string

	// Google Cloud Storage
	GCSBucket string
	GCSObject string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Database
	SQLiteDBPath string
	ImportKeep   int

	// AMQP, empty URL disables notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Dashboard defaults
	DefaultYear int
	TopN        int

	// View cache
	CacheTTL  time.Duration
	CacheSize int
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:   getEnv("DATA_BACKEND", "file"),
		ImportBackend: getEnv("IMPORT_BACKEND", "file"),

		DatasetPath:     getEnv("DATASET_PATH", "./data/health_expenditure.csv"),
		DatasetSkipRows: getEnvInt("DATASET_SKIP_ROWS", 4),
		DatasetSheet:    getEnv("DATASET_SHEET", ""),

		GCSBucket: getEnv("GCS_BUCKET", ""),
		GCSObject: getEnv("GCS_OBJECT", ""),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/healthdash.db"),
		ImportKeep:   getEnvInt("IMPORT_KEEP", 5),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "healthdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_imported"),

		DefaultYear: getEnvInt("DEFAULT_YEAR", 2020),
		TopN:        getEnvInt("TOP_N", 10),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 256),
	}

	// gs:// in DATASET_PATH fills bucket and object when they are not set explicitly
	if strings.HasPrefix(cfg.DatasetPath, "gs://") && cfg.GCSBucket == "" && cfg.GCSObject == "" {
		rest := strings.TrimPrefix(cfg.DatasetPath, "gs://")
		if bucket, object, ok := strings.Cut(rest, "/"); ok {
			cfg.GCSBucket, cfg.GCSObject = bucket, object
		}
	}

	return cfg
}

// AMQPEnabled reports whether import notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(DataBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, DataBackends))
	}
	if !slices.Contains(ImportBackends, c.ImportBackend) {
		errors = append(errors, fmt.Sprintf("invalid import backend '%s': must be one of %v", c.ImportBackend, ImportBackends))
	}

	if c.DatasetSkipRows < 0 {
		errors = append(errors, fmt.Sprintf("invalid dataset skip rows %d: must not be negative", c.DatasetSkipRows))
	}

	if c.DataBackend == "file" && c.DatasetPath == "" {
		errors = append(errors, "DATASET_PATH is required when using file backend")
	}

	if c.DataBackend == "gcs" || c.ImportBackend == "gcs" {
		if c.GCSBucket == "" || c.GCSObject == "" {
			errors = append(errors, "GCS_BUCKET and GCS_OBJECT (or a gs:// DATASET_PATH) are required for the gcs backend")
		}
	}

	if c.DataBackend == "sheets" || c.ImportBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.ImportKeep < 1 {
		errors = append(errors, fmt.Sprintf("invalid import keep %d: must be at least 1", c.ImportKeep))
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

	if c.DefaultYear < 1000 || c.DefaultYear > 9999 {
		errors = append(errors, fmt.Sprintf("invalid default year %d: must have four digits", c.DefaultYear))
	}
	if c.TopN < 1 || c.TopN > 500 {
		errors = append(errors, fmt.Sprintf("invalid top N %d: must be between 1 and 500", c.TopN))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
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

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
